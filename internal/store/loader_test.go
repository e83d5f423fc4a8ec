// File: internal/store/loader_test.go
package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScriptYAML = `name: login flow
platform: web
grouping: smoke
start_url: https://app.example.com/login
steps:
  - number: 1
    action: Open the login page
    precondition: The app is reachable
    expected: The login form is visible
  - number: 2
    action: Submit valid credentials
    expected: The dashboard is visible
    postcondition: URL contains /dashboard
`

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScriptFile(t *testing.T) {
	t.Run("parses a full script", func(t *testing.T) {
		path := writeScript(t, t.TempDir(), "login.yaml", sampleScriptYAML)

		script, err := LoadScriptFile(path)
		require.NoError(t, err)
		assert.Equal(t, "login flow", script.Name)
		assert.Equal(t, "smoke", script.Grouping)
		assert.Equal(t, "https://app.example.com/login", script.StartURL)
		require.Len(t, script.Steps, 2)
		assert.Equal(t, "The app is reachable", script.Steps[0].Precondition)
		assert.Equal(t, "URL contains /dashboard", script.Steps[1].Postcondition)
	})

	t.Run("name defaults to the file name", func(t *testing.T) {
		content := "steps:\n  - action: do a thing\n    expected: a thing happened\n"
		path := writeScript(t, t.TempDir(), "smoke_test.yml", content)

		script, err := LoadScriptFile(path)
		require.NoError(t, err)
		assert.Equal(t, "smoke_test", script.Name)
	})

	t.Run("step numbers default to position", func(t *testing.T) {
		content := "steps:\n  - action: one\n    expected: ok\n  - action: two\n    expected: ok\n"
		path := writeScript(t, t.TempDir(), "x.yaml", content)

		script, err := LoadScriptFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, script.Steps[0].Number)
		assert.Equal(t, 2, script.Steps[1].Number)
	})

	t.Run("rejects a script without steps", func(t *testing.T) {
		path := writeScript(t, t.TempDir(), "empty.yaml", "name: empty\n")
		_, err := LoadScriptFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no steps")
	})

	t.Run("rejects a step without action", func(t *testing.T) {
		content := "steps:\n  - expected: something\n"
		path := writeScript(t, t.TempDir(), "bad.yaml", content)
		_, err := LoadScriptFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no action")
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		path := writeScript(t, t.TempDir(), "broken.yaml", "steps: [{{")
		_, err := LoadScriptFile(path)
		assert.Error(t, err)
	})
}

func TestLoadScriptDir(t *testing.T) {
	t.Run("loads sorted scripts and skips other files", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "b_second.yaml", "steps:\n  - action: b\n    expected: ok\n")
		writeScript(t, dir, "a_first.yml", "steps:\n  - action: a\n    expected: ok\n")
		writeScript(t, dir, "notes.txt", "not a script")

		scripts, err := LoadScriptDir(dir)
		require.NoError(t, err)
		require.Len(t, scripts, 2)
		assert.Equal(t, "a_first", scripts[0].Name)
		assert.Equal(t, "b_second", scripts[1].Name)
	})

	t.Run("empty directory is an error", func(t *testing.T) {
		_, err := LoadScriptDir(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no test scripts")
	})

	t.Run("missing directory is an error", func(t *testing.T) {
		_, err := LoadScriptDir(filepath.Join(t.TempDir(), "absent"))
		assert.Error(t, err)
	})
}
