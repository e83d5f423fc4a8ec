// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
	"github.com/kestrelqa/kestrel-cli/internal/observability"
	"github.com/kestrelqa/kestrel-cli/internal/report"
	"github.com/kestrelqa/kestrel-cli/internal/runner"
	"github.com/kestrelqa/kestrel-cli/internal/store"
)

type runOptions struct {
	scriptFile   string
	scriptDir    string
	testName     string
	groupName    string
	reportPath   string
	reportFormat string
	dryRun       bool
	carryContext bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute test scripts against a live browser",
		Long: `Runs one or more UI test scripts. Scripts come from a YAML file or
directory, or from the Postgres store when --test or --group is given.
Each step is handed to the reasoning model, which drives the browser
until it can report a verdict for the step.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scriptFile, "script", "s", "", "path to a single test script YAML file")
	cmd.Flags().StringVarP(&opts.scriptDir, "dir", "d", "", "directory of test script YAML files")
	cmd.Flags().StringVar(&opts.testName, "test", "", "name of a test script in the store")
	cmd.Flags().StringVar(&opts.groupName, "group", "", "run every stored script in this grouping")
	cmd.Flags().StringVarP(&opts.reportPath, "report", "r", "", "write the run report to this path (default stdout)")
	cmd.Flags().StringVarP(&opts.reportFormat, "format", "f", "html", "report format: html or json")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate and list the resolved scripts without running them")
	cmd.Flags().BoolVar(&opts.carryContext, "carry-context", false, "carry the model conversation across tests and runs")
	cmd.MarkFlagsMutuallyExclusive("script", "dir", "test", "group")

	return cmd
}

func executeRun(ctx context.Context, opts *runOptions) error {
	cfg := appConfig
	logger := observability.GetLogger()

	if opts.carryContext {
		cfg.Runner.CarryContext = true
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.Store.Enabled {
		var closeStore func()
		var err error
		st, closeStore, err = openStore(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer closeStore()
	}

	scripts, err := resolveScripts(ctx, opts, st)
	if err != nil {
		return err
	}
	logger.Info("Resolved test scripts", zap.Int("count", len(scripts)))

	if opts.dryRun {
		for _, s := range scripts {
			fmt.Printf("%s (%d steps)\n", s.Name, len(s.Steps))
			for _, step := range s.Steps {
				fmt.Printf("  %2d. %s\n", step.Number, step.Action)
			}
		}
		return nil
	}

	h, err := newHarness(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.close()

	results := h.runner.RunSuite(ctx, scripts)
	if err := ctx.Err(); err != nil {
		logger.Warn("Run interrupted", zap.Error(err))
	}

	if st != nil {
		for _, result := range results {
			if err := st.SaveResult(ctx, result); err != nil {
				logger.Error("Failed to persist result", zap.String("test", result.Name), zap.Error(err))
			}
		}
	}

	if err := writeReport(opts.reportFormat, opts.reportPath, results); err != nil {
		return err
	}

	return suiteOutcome(results)
}

// resolveScripts turns the source flags into the list of scripts to run.
func resolveScripts(ctx context.Context, opts *runOptions, st *store.Store) ([]schemas.TestScript, error) {
	switch {
	case opts.scriptFile != "":
		script, err := store.LoadScriptFile(opts.scriptFile)
		if err != nil {
			return nil, runner.NewConfigurationError(err)
		}
		return []schemas.TestScript{*script}, nil
	case opts.scriptDir != "":
		scripts, err := store.LoadScriptDir(opts.scriptDir)
		if err != nil {
			return nil, runner.NewConfigurationError(err)
		}
		return scripts, nil
	case opts.testName != "":
		if st == nil {
			return nil, runner.NewConfigurationError(errors.New("--test requires the store to be enabled"))
		}
		script, err := st.LoadScript(ctx, opts.testName)
		if err != nil {
			return nil, err
		}
		return []schemas.TestScript{*script}, nil
	case opts.groupName != "":
		if st == nil {
			return nil, runner.NewConfigurationError(errors.New("--group requires the store to be enabled"))
		}
		return st.LoadGroup(ctx, opts.groupName)
	default:
		return nil, runner.NewConfigurationError(errors.New("one of --script, --dir, --test or --group is required"))
	}
}

func writeReport(format, path string, results []*schemas.TestResult) error {
	reporter, err := report.New(format, path)
	if err != nil {
		return runner.NewConfigurationError(err)
	}
	if err := reporter.Write(results); err != nil {
		reporter.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return reporter.Close()
}

// suiteOutcome maps the aggregate run status to the process exit status.
func suiteOutcome(results []*schemas.TestResult) error {
	var failed int
	for _, r := range results {
		if r.Status != schemas.TestPass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tests did not pass", failed, len(results))
	}
	return nil
}
