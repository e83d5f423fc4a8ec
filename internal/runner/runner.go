// File: internal/runner/runner.go

// Package runner orchestrates verified test execution: it turns script steps
// into perceive-act loop runs, parses the model's verdicts, and aggregates
// step results into test results.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
	"github.com/kestrelqa/kestrel-cli/internal/config"
	"github.com/kestrelqa/kestrel-cli/internal/convo"
	"github.com/kestrelqa/kestrel-cli/internal/loop"
)

// contextFileName is where the cross-run transcript lands when context
// carrying is enabled.
const contextFileName = "kestrel_context.json"

// Runner executes test scripts and free-form instructions against a live
// screen.
type Runner struct {
	model           schemas.ModelClient
	driver          schemas.ScreenDriver
	capture         schemas.Capturer
	logger          *zap.Logger
	cfg             config.RunnerConfig
	maxOutputTokens int
}

// New builds a runner over the given model, driver and capturer.
func New(model schemas.ModelClient, driver schemas.ScreenDriver, capture schemas.Capturer, logger *zap.Logger, cfg config.RunnerConfig, maxOutputTokens int) *Runner {
	return &Runner{
		model:           model,
		driver:          driver,
		capture:         capture,
		logger:          logger.Named("runner"),
		cfg:             cfg,
		maxOutputTokens: maxOutputTokens,
	}
}

// ContextFilePath is where the runner persists and restores the cross-run
// transcript.
func (r *Runner) ContextFilePath() string {
	return filepath.Join(r.cfg.ReportsDir, contextFileName)
}

// RunSuite executes the scripts in order. When context carrying is enabled
// the conversation survives from one test to the next, so a later test can
// reference state built up by an earlier one.
func (r *Runner) RunSuite(ctx context.Context, scripts []schemas.TestScript) []*schemas.TestResult {
	var conversation *convo.Conversation
	if r.cfg.CarryContext {
		if loaded, err := convo.Load(r.ContextFilePath()); err == nil {
			r.logger.Info("Restored carried context", zap.Int("messages", loaded.Len()))
			conversation = loaded
		} else {
			conversation = convo.New()
		}
	}

	results := make([]*schemas.TestResult, 0, len(scripts))
	for _, script := range scripts {
		testConv := conversation
		if testConv == nil {
			testConv = convo.New()
		}
		result := r.runTest(ctx, script, testConv)
		results = append(results, result)

		if r.cfg.CarryContext {
			if err := convo.Save(r.ContextFilePath(), testConv); err != nil {
				r.logger.Warn("Could not persist carried context", zap.Error(err))
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// RunTest executes one script with a fresh conversation.
func (r *Runner) RunTest(ctx context.Context, script schemas.TestScript) *schemas.TestResult {
	return r.runTest(ctx, script, convo.New())
}

func (r *Runner) runTest(ctx context.Context, script schemas.TestScript, conversation *convo.Conversation) *schemas.TestResult {
	log := r.logger.With(zap.String("test", script.Name))
	log.Info("Starting test", zap.Int("steps", len(script.Steps)))

	result := &schemas.TestResult{
		Name:      script.Name,
		Platform:  script.Platform,
		StartTime: time.Now(),
	}

	saver := loop.NewScreenshotSaver(
		filepath.Join(r.cfg.ScreenshotsDir, sanitizeName(script.Name)), log)

	for _, step := range script.Steps {
		stepResult := r.runStep(ctx, script, step, conversation, saver)
		result.Usage.Add(stepResult.Usage)
		result.Steps = append(result.Steps, *stepResult)

		if stepResult.Status != schemas.StepPass {
			// Later steps assume the state this one should have produced;
			// running them after a failure only generates noise.
			log.Warn("Stopping test early",
				zap.Int("step", step.Number),
				zap.String("status", string(stepResult.Status)))
			break
		}
	}

	result.EndTime = time.Now()
	result.Status = aggregateStatus(result)
	log.Info("Test finished",
		zap.String("status", string(result.Status)),
		zap.Int("passed", result.PassedCount()),
		zap.Int("failed", result.FailedCount()),
		zap.Int("errors", result.ErrorCount()))
	return result
}

func (r *Runner) runStep(ctx context.Context, script schemas.TestScript, step schemas.ScriptStep, conversation *convo.Conversation, saver *loop.ScreenshotSaver) *schemas.StepResult {
	stepID := fmt.Sprintf("step_%02d", step.Number)
	log := r.logger.With(zap.String("test", script.Name), zap.Int("step", step.Number))
	log.Info("Executing step", zap.String("action", step.Action))

	stepResult := &schemas.StepResult{
		StepNumber: step.Number,
		Action:     step.Action,
		Expected:   step.Expected,
		Timestamp:  time.Now(),
		TestName:   script.Name,
		Grouping:   script.Grouping,
	}
	start := time.Now()
	defer func() { stepResult.Duration = time.Since(start) }()

	if url, err := r.capture.CurrentURL(ctx); err == nil {
		stepResult.StateBefore = url
	}

	conversation.Append(schemas.TextMessage(schemas.RoleUser, BuildStepPrompt(step)))

	l := loop.New(r.model, r.driver, r.capture, r.logger, loop.Options{
		System:           BuildSystemInstruction(r.cfg.SystemSuffix),
		MaxTurns:         r.cfg.MaxTurns,
		MaxOutputTokens:  r.maxOutputTokens,
		KeepRecentImages: r.cfg.KeepRecentImages,
		SettleDelay:      r.cfg.SettleDelay,
		TurnPacing:       r.cfg.TurnPacing,
		NarrativeObservers: []schemas.NarrativeObserver{
			&loop.ZapNarrativeObserver{Logger: log},
		},
		ToolObservers: []schemas.ToolObserver{
			saver,
			&loop.ConsoleProgressObserver{Logger: log},
		},
	})

	outcome, err := l.Run(ctx, stepID, conversation)
	stepResult.ScreenshotPaths = saver.Paths(stepID)

	if err != nil {
		stepResult.Status = schemas.StepError
		stepResult.ErrorMessage = classifyLoopError(err).Error()
		log.Error("Step aborted", zap.Error(err))
		return stepResult
	}

	stepResult.Usage = outcome.Usage
	if url, err := r.capture.CurrentURL(ctx); err == nil {
		stepResult.StateAfter = url
	}

	// A verdict the model voiced before the budget ran out still counts.
	if outcome.Reason == loop.BudgetExhausted && !hasVerdictMarker(outcome.FinalText) {
		stepResult.Status = schemas.StepFail
		stepResult.Actual = "Turn budget exhausted before the model reported a verdict."
		log.Warn("Step failed: turn budget exhausted")
		return stepResult
	}

	status, observation := ParseVerdict(outcome.FinalText)
	stepResult.Status = status
	if observation != "" {
		stepResult.Actual = observation
	} else {
		stepResult.Actual = clipNarrative(outcome.FinalText)
	}
	log.Info("Step verdict",
		zap.String("status", string(status)),
		zap.Int("turns", outcome.Turns))
	return stepResult
}

// RunInstruction executes one free-form instruction and returns the model's
// findings. The open-ended runner keeps a wider screenshot window than the
// iterative step runner since a single exploration benefits from more visual
// history.
func (r *Runner) RunInstruction(ctx context.Context, instruction string) (string, *schemas.StepResult, error) {
	log := r.logger.With(zap.String("mode", "instruction"))
	log.Info("Executing instruction", zap.String("instruction", instruction))

	conversation := convo.New()
	if r.cfg.CarryContext {
		if loaded, err := convo.Load(r.ContextFilePath()); err == nil {
			log.Info("Restored carried context", zap.Int("messages", loaded.Len()))
			conversation = loaded
		}
	}
	conversation.Append(schemas.TextMessage(schemas.RoleUser, BuildInstructionPrompt(instruction)))

	saver := loop.NewScreenshotSaver(filepath.Join(r.cfg.ScreenshotsDir, "instruction"), log)

	l := loop.New(r.model, r.driver, r.capture, r.logger, loop.Options{
		System:           BuildSystemInstruction(r.cfg.SystemSuffix),
		MaxTurns:         r.cfg.MaxTurns,
		MaxOutputTokens:  r.maxOutputTokens,
		KeepRecentImages: r.cfg.StepKeepRecentImages,
		SettleDelay:      r.cfg.SettleDelay,
		TurnPacing:       r.cfg.TurnPacing,
		NarrativeObservers: []schemas.NarrativeObserver{
			&loop.ZapNarrativeObserver{Logger: log},
		},
		ToolObservers: []schemas.ToolObserver{
			saver,
			&loop.ConsoleProgressObserver{Logger: log},
		},
	})

	stepResult := &schemas.StepResult{
		StepNumber: 1,
		Action:     instruction,
		Timestamp:  time.Now(),
	}
	start := time.Now()

	outcome, err := l.Run(ctx, "instruction", conversation)
	stepResult.Duration = time.Since(start)
	stepResult.ScreenshotPaths = saver.Paths("instruction")

	if err != nil {
		stepResult.Status = schemas.StepError
		stepResult.ErrorMessage = classifyLoopError(err).Error()
		return "", stepResult, err
	}

	stepResult.Usage = outcome.Usage
	findings := ExtractFindings(outcome.FinalText)
	stepResult.Actual = findings
	if outcome.Reason == loop.BudgetExhausted {
		stepResult.Status = schemas.StepFail
	} else {
		stepResult.Status = schemas.StepPass
	}

	if r.cfg.CarryContext {
		if err := convo.Save(r.ContextFilePath(), conversation); err != nil {
			log.Warn("Could not persist carried context", zap.Error(err))
		}
	}
	return findings, stepResult, nil
}

// classifyLoopError maps a loop failure onto the error taxonomy: a failed
// reasoning-model call is a provider fault, everything else happened on the
// automation surface.
func classifyLoopError(err error) *RunError {
	var mce *loop.ModelCallError
	if errors.As(err, &mce) {
		return NewProviderError(err)
	}
	return NewActionExecutionError(err)
}

// aggregateStatus folds step statuses into the test verdict: any error makes
// the test an error, otherwise any failure fails it, otherwise it passes.
// A test with no steps fails; an empty script proves nothing.
func aggregateStatus(result *schemas.TestResult) schemas.TestStatus {
	if len(result.Steps) == 0 {
		return schemas.TestFail
	}
	if result.ErrorCount() > 0 {
		return schemas.TestError
	}
	if result.FailedCount() > 0 {
		return schemas.TestFail
	}
	return schemas.TestPass
}

// sanitizeName turns a test name into a directory-safe slug.
func sanitizeName(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if slug == "" {
		slug = "test"
	}
	return slug
}
