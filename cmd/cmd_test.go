// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
	"github.com/kestrelqa/kestrel-cli/internal/runner"
)

const sampleScriptYAML = `name: login flow
start_url: https://app.example.com/login
steps:
  - action: Open the login page
    expected: The login form is visible
`

func writeScript(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sampleScriptYAML), 0o644))
	return path
}

func TestRootCmd_VersionFlag(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--version"})

	err := rootCmd.ExecuteContext(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), Version)
}

func TestResolveScripts(t *testing.T) {
	ctx := context.Background()

	t.Run("single file", func(t *testing.T) {
		path := writeScript(t, t.TempDir(), "login.yaml")

		scripts, err := resolveScripts(ctx, &runOptions{scriptFile: path}, nil)
		require.NoError(t, err)
		require.Len(t, scripts, 1)
		assert.Equal(t, "login flow", scripts[0].Name)
	})

	t.Run("directory", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "a.yaml")
		writeScript(t, dir, "b.yaml")

		scripts, err := resolveScripts(ctx, &runOptions{scriptDir: dir}, nil)
		require.NoError(t, err)
		assert.Len(t, scripts, 2)
	})

	t.Run("no source is a configuration error", func(t *testing.T) {
		_, err := resolveScripts(ctx, &runOptions{}, nil)
		require.Error(t, err)
		assert.Equal(t, runner.ErrCodeConfiguration, runner.CodeOf(err))
	})

	t.Run("stored test without a store is a configuration error", func(t *testing.T) {
		_, err := resolveScripts(ctx, &runOptions{testName: "login flow"}, nil)
		require.Error(t, err)
		assert.Equal(t, runner.ErrCodeConfiguration, runner.CodeOf(err))
	})
}

func sampleResults(statuses ...schemas.TestStatus) []*schemas.TestResult {
	now := time.Now()
	results := make([]*schemas.TestResult, 0, len(statuses))
	for _, status := range statuses {
		results = append(results, &schemas.TestResult{
			Name:      "sample",
			StartTime: now,
			EndTime:   now.Add(time.Second),
			Status:    status,
		})
	}
	return results
}

func TestSuiteOutcome(t *testing.T) {
	assert.NoError(t, suiteOutcome(sampleResults(schemas.TestPass, schemas.TestPass)))

	err := suiteOutcome(sampleResults(schemas.TestPass, schemas.TestFail, schemas.TestError))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 tests did not pass")
}

func TestWriteReport(t *testing.T) {
	t.Run("writes a json report to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")

		require.NoError(t, writeReport("json", path, sampleResults(schemas.TestPass)))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"results"`)
	})

	t.Run("unknown format is a configuration error", func(t *testing.T) {
		err := writeReport("pdf", "", nil)
		require.Error(t, err)
		assert.Equal(t, runner.ErrCodeConfiguration, runner.CodeOf(err))
	})
}

func TestWriteInstructionOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "step.json")
	result := &schemas.StepResult{Action: "check the banner", Status: schemas.StepPass}

	require.NoError(t, writeInstructionOutput(path, "check the banner", "banner is green", result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded instructionOutput
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "banner is green", decoded.Findings)
	assert.Equal(t, schemas.StepPass, decoded.Result.Status)
}

func TestRenderReport(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "results.json")
	require.NoError(t, writeReport("json", exportPath, sampleResults(schemas.TestPass)))

	htmlPath := filepath.Join(dir, "results.html")
	require.NoError(t, renderReport(exportPath, "html", htmlPath))

	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")

	t.Run("missing export is a configuration error", func(t *testing.T) {
		err := renderReport(filepath.Join(dir, "absent.json"), "html", "")
		require.Error(t, err)
		assert.Equal(t, runner.ErrCodeConfiguration, runner.CodeOf(err))
	})
}
