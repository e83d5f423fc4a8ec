// File: internal/loop/loop.go

// Package loop implements the perceive-act turn loop: it feeds the
// conversation to the reasoning model, executes the actions the model
// requests, attaches fresh perception to each result, and stops when the
// model finishes or the turn budget runs out.
package loop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
	"github.com/kestrelqa/kestrel-cli/internal/convo"
)

// ModelCallError marks a failure of the reasoning-model call so callers can
// classify it apart from automation failures.
type ModelCallError struct {
	Err error
}

func (e *ModelCallError) Error() string { return e.Err.Error() }

func (e *ModelCallError) Unwrap() error { return e.Err }

// StopReason says why the loop ended.
type StopReason string

const (
	// Done means the model produced a turn with no action calls, signalling
	// it considers the instruction complete.
	Done StopReason = "done"
	// BudgetExhausted means the turn budget ran out before the model
	// finished.
	BudgetExhausted StopReason = "budget_exhausted"
)

// Outcome is what a finished loop hands back to the runner.
type Outcome struct {
	// Reason records how the loop stopped.
	Reason StopReason
	// Turns is the number of model invocations consumed.
	Turns int
	// FinalText is the narrative concatenated across every turn of the run,
	// in turn order. The runner parses the verdict out of it, so a verdict
	// the model voiced in an earlier mixed text-and-action turn is not lost.
	FinalText string
	// Usage is the token total across all turns.
	Usage schemas.Usage
}

// Options configures one loop run.
type Options struct {
	// System is the system instruction for every model turn.
	System string
	// MaxTurns caps the number of model invocations.
	MaxTurns int
	// MaxOutputTokens caps each generated turn.
	MaxOutputTokens int
	// KeepRecentImages is the retention window applied before every model
	// call. Non-positive disables eviction.
	KeepRecentImages int
	// SettleDelay is the pause between dispatching an action and capturing
	// the post-action screenshot, giving the page time to react.
	SettleDelay time.Duration
	// TurnPacing is the minimum spacing between model invocations.
	TurnPacing time.Duration

	NarrativeObservers []schemas.NarrativeObserver
	ToolObservers      []schemas.ToolObserver
}

// Loop drives one conversation to completion.
type Loop struct {
	model   schemas.ModelClient
	driver  schemas.ScreenDriver
	capture schemas.Capturer
	logger  *zap.Logger
	opts    Options
	limiter *rate.Limiter
}

// New builds a loop over the given model, driver and capturer.
func New(model schemas.ModelClient, driver schemas.ScreenDriver, capture schemas.Capturer, logger *zap.Logger, opts Options) *Loop {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 15
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.TurnPacing > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.TurnPacing), 1)
	}
	return &Loop{
		model:   model,
		driver:  driver,
		capture: capture,
		logger:  logger.Named("loop"),
		opts:    opts,
		limiter: limiter,
	}
}

// Run executes the loop over the conversation until the model stops
// requesting actions or the budget runs out. stepID tags observer callbacks
// so persisted artifacts can be grouped per step.
//
// The conversation must already hold the instruction as its final user
// message; Run attaches the initial screenshot to it before the first model
// call.
func (l *Loop) Run(ctx context.Context, stepID string, conversation *convo.Conversation) (*Outcome, error) {
	initial, err := l.capture.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing initial state: %w", err)
	}
	conversation.AttachPerception(initial)

	outcome := &Outcome{}
	var narrative strings.Builder

	for turn := 1; turn <= l.opts.MaxTurns; turn++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		if l.opts.KeepRecentImages > 0 {
			if evicted := conversation.ApplyRetention(l.opts.KeepRecentImages); evicted > 0 {
				l.logger.Debug("Evicted screenshots from history", zap.Int("evicted", evicted))
			}
		}

		modelTurn, err := l.model.GenerateTurn(ctx, schemas.ModelRequest{
			System:          l.opts.System,
			Conversation:    conversation.Messages(),
			MaxOutputTokens: l.opts.MaxOutputTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("model turn %d: %w", turn, &ModelCallError{Err: err})
		}
		outcome.Turns = turn
		outcome.Usage.Add(modelTurn.Usage)

		agentMsg, calls, turnNarrative := l.recordAgentTurn(modelTurn)
		conversation.Append(agentMsg)
		if turnNarrative != "" {
			if narrative.Len() > 0 {
				narrative.WriteByte('\n')
			}
			narrative.WriteString(turnNarrative)
		}
		outcome.FinalText = narrative.String()

		if len(calls) == 0 {
			outcome.Reason = Done
			l.logger.Info("Model finished",
				zap.Int("turns", turn),
				zap.Int("input_tokens", outcome.Usage.InputTokens),
				zap.Int("output_tokens", outcome.Usage.OutputTokens))
			return outcome, nil
		}

		// All of a turn's results travel in one message; this is the shape
		// the model expects for parallel calls.
		resultParts := make([]schemas.Part, 0, len(calls))
		for _, call := range calls {
			result, err := l.executeAction(ctx, call)
			if err != nil {
				return nil, fmt.Errorf("turn %d action %s: %w", turn, call.Name, err)
			}
			for _, obs := range l.opts.ToolObservers {
				obs.OnActionResult(stepID, *result)
			}
			resultParts = append(resultParts, schemas.ResultPart(result))
		}
		conversation.Append(schemas.Message{Role: schemas.RoleUser, Parts: resultParts})
	}

	outcome.Reason = BudgetExhausted
	l.logger.Warn("Turn budget exhausted", zap.Int("max_turns", l.opts.MaxTurns))
	return outcome, nil
}

// recordAgentTurn converts a model turn into a conversation message,
// returning the action calls it contained and its concatenated narrative.
func (l *Loop) recordAgentTurn(turn *schemas.ModelTurn) (schemas.Message, []*schemas.ActionRequest, string) {
	msg := schemas.Message{Role: schemas.RoleAgent}
	var calls []*schemas.ActionRequest
	narrative := ""

	for _, part := range turn.Parts {
		if part.Call != nil {
			msg.Parts = append(msg.Parts, schemas.Part{Kind: schemas.PartActionCall, Call: part.Call})
			calls = append(calls, part.Call)
			continue
		}
		if part.Text == "" {
			continue
		}
		msg.Parts = append(msg.Parts, schemas.TextPart(part.Text))
		if narrative != "" {
			narrative += "\n"
		}
		narrative += part.Text
		for _, obs := range l.opts.NarrativeObservers {
			obs.OnNarrative(part.Text)
		}
	}
	return msg, calls, narrative
}

// executeAction dispatches one action, waits for the page to settle, then
// captures the post-action state.
func (l *Loop) executeAction(ctx context.Context, call *schemas.ActionRequest) (*schemas.ActionResult, error) {
	screen, err := l.capture.ScreenSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading screen size: %w", err)
	}

	output, err := l.driver.Execute(ctx, *call, screen)
	if err != nil {
		return nil, err
	}

	if l.opts.SettleDelay > 0 {
		select {
		case <-time.After(l.opts.SettleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	shot, err := l.capture.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing post-action state: %w", err)
	}
	url, err := l.capture.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading post-action URL: %w", err)
	}

	return &schemas.ActionResult{
		Name:       call.Name,
		Outcome:    output,
		Screenshot: shot,
		URL:        url,
	}, nil
}
