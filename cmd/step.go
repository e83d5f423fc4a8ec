// File: cmd/step.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
	"github.com/kestrelqa/kestrel-cli/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newStepCmd() *cobra.Command {
	var (
		carryContext bool
		outputPath   string
	)

	cmd := &cobra.Command{
		Use:   "step <instruction>",
		Short: "Execute a single free-form instruction",
		Long: `Hands one natural-language instruction to the model and lets it drive
the browser until it reports back. Useful for exploratory poking and
for debugging a failing script step in isolation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeStep(cmd.Context(), strings.Join(args, " "), carryContext, outputPath)
		},
	}

	cmd.Flags().BoolVar(&carryContext, "carry-context", false, "carry the model conversation across invocations")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the step result as JSON to this path")
	return cmd
}

// instructionOutput is the machine-readable result of one instruction run.
type instructionOutput struct {
	Instruction string             `json:"instruction"`
	Findings    string             `json:"findings"`
	Result      *schemas.StepResult `json:"result"`
}

func executeStep(ctx context.Context, instruction string, carryContext bool, outputPath string) error {
	cfg := appConfig
	logger := observability.GetLogger()

	if carryContext {
		cfg.Runner.CarryContext = true
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := newHarness(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.close()

	findings, result, err := h.runner.RunInstruction(ctx, instruction)
	if err != nil {
		return err
	}

	fmt.Println(findings)
	if outputPath != "" {
		if err := writeInstructionOutput(outputPath, instruction, findings, result); err != nil {
			return err
		}
	}
	if result != nil && result.Status != schemas.StepPass {
		return fmt.Errorf("instruction did not complete: %s", result.Actual)
	}
	return nil
}

func writeInstructionOutput(path, instruction, findings string, result *schemas.StepResult) error {
	data, err := json.MarshalIndent(instructionOutput{
		Instruction: instruction,
		Findings:    findings,
		Result:      result,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding step output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing step output: %w", err)
	}
	return nil
}
