// File: internal/report/report.go

// Package report renders finished test results for humans and machines: an
// HTML run report with per-step detail and screenshot links, and a JSON
// export for downstream tooling.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes a suite of test results to an output.
type Reporter interface {
	// Write renders all results. Call once.
	Write(results []*schemas.TestResult) error
	// Close finalizes the report and releases the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format writing to outputPath.
// An empty path or "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "html":
		return NewHTMLReporter(writer), nil
	case "json":
		return NewJSONReporter(writer), nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// JSONReporter emits the results as a single JSON document.
type JSONReporter struct {
	writer io.WriteCloser
}

// NewJSONReporter takes ownership of the writer.
func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: w}
}

type jsonReport struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Summary     summary               `json:"summary"`
	Results     []*schemas.TestResult `json:"results"`
}

func (r *JSONReporter) Write(results []*schemas.TestResult) error {
	doc := jsonReport{
		GeneratedAt: time.Now(),
		Summary:     summarize(results),
		Results:     results,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if _, err := r.writer.Write(data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error { return r.writer.Close() }

// ReadResults decodes a JSON export previously produced by JSONReporter,
// returning just the per-test results.
func ReadResults(reader io.Reader) ([]*schemas.TestResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var doc jsonReport
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return doc.Results, nil
}

// summary is the roll-up across all tests in the run.
type summary struct {
	Total        int `json:"total"`
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Errors       int `json:"errors"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func summarize(results []*schemas.TestResult) summary {
	var s summary
	for _, r := range results {
		s.Total++
		switch r.Status {
		case schemas.TestPass:
			s.Passed++
		case schemas.TestFail:
			s.Failed++
		case schemas.TestError:
			s.Errors++
		}
		s.InputTokens += r.Usage.InputTokens
		s.OutputTokens += r.Usage.OutputTokens
	}
	return s
}
