// File: internal/report/report_test.go
package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuffer) Close() error {
	b.closed = true
	return nil
}

func sampleResults() []*schemas.TestResult {
	now := time.Now()
	return []*schemas.TestResult{
		{
			Name:      "login flow",
			Platform:  "web",
			StartTime: now,
			EndTime:   now.Add(time.Minute),
			Status:    schemas.TestPass,
			Usage:     schemas.Usage{InputTokens: 1000, OutputTokens: 100},
			Steps: []schemas.StepResult{
				{
					StepNumber:      1,
					Action:          "Open the login page",
					Expected:        "Login form visible",
					Status:          schemas.StepPass,
					Actual:          "The login form is visible.",
					Duration:        3 * time.Second,
					ScreenshotPaths: []string{"shots/step_01_001.png"},
				},
			},
		},
		{
			Name:      "broken checkout",
			StartTime: now,
			EndTime:   now.Add(time.Minute),
			Status:    schemas.TestError,
			Steps: []schemas.StepResult{
				{
					StepNumber:   1,
					Action:       "Click checkout",
					Expected:     "Payment form",
					Status:       schemas.StepError,
					ErrorMessage: "ACTION_EXECUTION_ERROR: renderer gone",
				},
			},
		},
	}
}

func TestHTMLReporter(t *testing.T) {
	buf := &closableBuffer{}
	r := NewHTMLReporter(buf)

	require.NoError(t, r.Write(sampleResults()))
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	out := buf.String()
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "login flow")
	assert.Contains(t, out, "The login form is visible.")
	assert.Contains(t, out, "step_01_001.png")
	assert.Contains(t, out, "ACTION_EXECUTION_ERROR: renderer gone")
	assert.Contains(t, out, `class="pass"`)
	assert.Contains(t, out, `class="error"`)
}

func TestHTMLReporterEscapesContent(t *testing.T) {
	buf := &closableBuffer{}
	r := NewHTMLReporter(buf)

	results := sampleResults()
	results[0].Steps[0].Actual = `<script>alert("x")</script>`
	require.NoError(t, r.Write(results))

	assert.NotContains(t, buf.String(), `<script>alert`)
}

func TestJSONReporter(t *testing.T) {
	buf := &closableBuffer{}
	r := NewJSONReporter(buf)

	require.NoError(t, r.Write(sampleResults()))
	require.NoError(t, r.Close())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	sum, ok := doc["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), sum["total"])
	assert.Equal(t, float64(1), sum["passed"])
	assert.Equal(t, float64(1), sum["errors"])
	assert.Equal(t, float64(1000), sum["input_tokens"])
}

func TestNew(t *testing.T) {
	t.Run("html to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.html")
		r, err := New("html", path)
		require.NoError(t, err)
		require.NoError(t, r.Write(sampleResults()))
		require.NoError(t, r.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := New("pdf", "")
		assert.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	s := summarize(sampleResults())
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, 1, s.Errors)
}
