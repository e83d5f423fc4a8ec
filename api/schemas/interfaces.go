// File: api/schemas/interfaces.go
package schemas

import "context"

// -- Reasoning-model contract --

// ModelPart is one ordered element of a model response turn: either
// narrative text or a requested input action, never both.
type ModelPart struct {
	Text string
	Call *ActionRequest
}

// ModelRequest is a provider-agnostic request for one model turn.
type ModelRequest struct {
	// System is the full system instruction, including any caller-supplied
	// behavioral suffix.
	System string
	// Conversation is the ordered, retention-filtered message history.
	Conversation []Message
	// MaxOutputTokens caps the size of the generated turn.
	MaxOutputTokens int
}

// ModelTurn is a provider-agnostic model response. Parts preserve the order
// the provider returned them in; a turn may be narrative-only, action-only,
// or mixed.
type ModelTurn struct {
	Parts []ModelPart
	Usage Usage
}

// ModelClient abstracts the reasoning-model provider. Implementations
// translate the provider's wire shapes to and from the contract above; the
// turn loop never sees provider-specific types.
type ModelClient interface {
	// GenerateTurn runs one model invocation over the given conversation.
	GenerateTurn(ctx context.Context, req ModelRequest) (*ModelTurn, error)
	// Close releases any resources held by the client.
	Close() error
}

// -- Screen driver contract --

// ScreenDriver executes one abstract action request as concrete input
// events against the surface under test. The outcome string describes what
// was done (or why it was not recognized); an error return is reserved for
// unrecoverable automation failures. Verification of whether the action had
// the intended effect is the model's job, not the driver's.
type ScreenDriver interface {
	Execute(ctx context.Context, req ActionRequest, screen ScreenSize) (string, error)
}

// Capturer reads the current visual and auxiliary state of the surface
// under test.
type Capturer interface {
	// Capture takes a screenshot and returns it as a perception artifact.
	Capture(ctx context.Context) (*PerceptionArtifact, error)
	// CurrentURL reports the active page URL, or "about:blank" when none.
	CurrentURL(ctx context.Context) (string, error)
	// ScreenSize reports the current pixel geometry of the surface.
	ScreenSize(ctx context.Context) (ScreenSize, error)
}

// -- Observer contracts --

// NarrativeObserver receives the model's narrative text parts as they
// arrive, in order.
type NarrativeObserver interface {
	OnNarrative(text string)
}

// ToolObserver receives each action result, with its perception artifact
// still attached, immediately after the action executes. Screenshot
// persistence and console progress output hang off this interface.
type ToolObserver interface {
	OnActionResult(stepID string, result ActionResult)
}

// NarrativeObserverFunc adapts a function to the NarrativeObserver
// interface.
type NarrativeObserverFunc func(text string)

func (f NarrativeObserverFunc) OnNarrative(text string) { f(text) }

// ToolObserverFunc adapts a function to the ToolObserver interface.
type ToolObserverFunc func(stepID string, result ActionResult)

func (f ToolObserverFunc) OnActionResult(stepID string, result ActionResult) { f(stepID, result) }
