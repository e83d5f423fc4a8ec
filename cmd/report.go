// File: cmd/report.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelqa/kestrel-cli/internal/report"
	"github.com/kestrelqa/kestrel-cli/internal/runner"
)

func newReportCmd() *cobra.Command {
	var (
		outputPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "report <results.json>",
		Short: "Re-render a JSON results export",
		Long: `Reads a JSON export written by a previous run and renders it in
another format, typically HTML for sharing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderReport(args[0], format, outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the rendered report to this path (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "html", "report format: html or json")
	return cmd
}

func renderReport(inputPath, format, outputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return runner.NewConfigurationError(fmt.Errorf("opening results export: %w", err))
	}
	defer f.Close()

	results, err := report.ReadResults(f)
	if err != nil {
		return runner.NewConfigurationError(err)
	}

	return writeReport(format, outputPath, results)
}
