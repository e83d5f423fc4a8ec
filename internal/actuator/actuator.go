// File: internal/actuator/actuator.go

// Package actuator translates abstract model-issued input actions into
// concrete CDP input events. It owns the normalized-coordinate geometry and
// the key synonym table; it knows nothing about conversations or verdicts.
package actuator

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

// defaultDispatchTimeout bounds each individual input dispatch so a wedged
// renderer cannot stall the whole turn loop.
const defaultDispatchTimeout = 5 * time.Second

// searchURL is where the search action lands.
const searchURL = "https://www.google.com"

// dragSteps is the number of intermediate mouse moves during a drag.
const dragSteps = 4

// documentScrollDelta is the fixed wheel delta for whole-document scrolls.
const documentScrollDelta = 800

// Executor runs low-level browser actions against the live session. The
// production implementation forwards to chromedp; tests substitute a
// recorder.
type Executor interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
}

// Translator executes abstract action requests as CDP input events. It
// implements schemas.ScreenDriver.
type Translator struct {
	exec            Executor
	logger          *zap.Logger
	dispatchTimeout time.Duration
}

var _ schemas.ScreenDriver = (*Translator)(nil)

// NewTranslator builds a translator over the given executor. A zero
// dispatchTimeout selects the default.
func NewTranslator(exec Executor, logger *zap.Logger, dispatchTimeout time.Duration) *Translator {
	if dispatchTimeout <= 0 {
		dispatchTimeout = defaultDispatchTimeout
	}
	return &Translator{
		exec:            exec,
		logger:          logger.Named("actuator"),
		dispatchTimeout: dispatchTimeout,
	}
}

// Execute dispatches one action request against the screen. The returned
// string describes the outcome for the model's benefit; an error return is
// reserved for failures of the automation surface itself. An action name
// outside the known set is reported in the outcome, not treated as an error,
// so the model can correct itself on the next turn.
func (t *Translator) Execute(ctx context.Context, req schemas.ActionRequest, screen schemas.ScreenSize) (string, error) {
	t.logger.Debug("Executing action",
		zap.String("action", string(req.Name)),
		zap.Any("args", req.Args))

	switch req.Name {
	case schemas.ActionClickAt:
		return t.clickAt(ctx, req, screen)
	case schemas.ActionHoverAt:
		return t.hoverAt(ctx, req, screen)
	case schemas.ActionTypeTextAt:
		return t.typeTextAt(ctx, req, screen)
	case schemas.ActionKeyCombination:
		return t.keyCombination(ctx, req)
	case schemas.ActionScrollAt:
		return t.scrollAt(ctx, req, screen)
	case schemas.ActionScrollDocument:
		return t.scrollDocument(ctx, req, screen)
	case schemas.ActionNavigate:
		return t.navigate(ctx, req)
	case schemas.ActionGoBack:
		return t.goBack(ctx)
	case schemas.ActionGoForward:
		return t.goForward(ctx)
	case schemas.ActionWait5Seconds:
		return t.wait(ctx)
	case schemas.ActionOpenWebBrowser:
		// The browser session is already running by the time the loop starts.
		return "The web browser is already open.", nil
	case schemas.ActionDragAndDrop:
		return t.dragAndDrop(ctx, req, screen)
	case schemas.ActionSearch:
		return t.search(ctx)
	default:
		t.logger.Warn("Model requested an unrecognized action", zap.String("action", string(req.Name)))
		return fmt.Sprintf("Unrecognized action %q; no input was dispatched.", req.Name), nil
	}
}

// run executes the actions under the per-dispatch timeout.
func (t *Translator) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, t.dispatchTimeout)
	defer cancel()

	err := t.exec.Run(opCtx, actions...)
	if err != nil && opCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("input dispatch timed out after %v: %w", t.dispatchTimeout, opCtx.Err())
	}
	return err
}

func (t *Translator) point(req schemas.ActionRequest, screen schemas.ScreenSize) (float64, float64, error) {
	nx, err := req.IntArg("x")
	if err != nil {
		return 0, 0, err
	}
	ny, err := req.IntArg("y")
	if err != nil {
		return 0, 0, err
	}
	px, py := DenormalizePoint(nx, ny, screen)
	return float64(px), float64(py), nil
}

func (t *Translator) clickAt(ctx context.Context, req schemas.ActionRequest, screen schemas.ScreenSize) (string, error) {
	x, y, err := t.point(req, screen)
	if err != nil {
		return "", err
	}
	actions := []chromedp.Action{
		input.DispatchMouseEvent(input.MouseMoved, x, y),
		input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.MouseButton("left")).
			WithClickCount(1),
		input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.MouseButton("left")).
			WithClickCount(1),
	}
	if err := t.run(ctx, actions...); err != nil {
		return "", fmt.Errorf("click at (%.0f, %.0f): %w", x, y, err)
	}
	return fmt.Sprintf("Clicked at (%.0f, %.0f).", x, y), nil
}

func (t *Translator) hoverAt(ctx context.Context, req schemas.ActionRequest, screen schemas.ScreenSize) (string, error) {
	x, y, err := t.point(req, screen)
	if err != nil {
		return "", err
	}
	if err := t.run(ctx, input.DispatchMouseEvent(input.MouseMoved, x, y)); err != nil {
		return "", fmt.Errorf("hover at (%.0f, %.0f): %w", x, y, err)
	}
	return fmt.Sprintf("Moved the mouse to (%.0f, %.0f).", x, y), nil
}

// typeTextAt focuses the target point with a click, optionally clears the
// field, then inserts the text in one shot. Insertion goes through
// Input.insertText rather than per-character key events; it is the reliable
// path for arbitrary Unicode and matches how a paste lands in the page.
func (t *Translator) typeTextAt(ctx context.Context, req schemas.ActionRequest, screen schemas.ScreenSize) (string, error) {
	x, y, err := t.point(req, screen)
	if err != nil {
		return "", err
	}
	text := req.StringArg("text", "")

	actions := []chromedp.Action{
		input.DispatchMouseEvent(input.MouseMoved, x, y),
		input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.MouseButton("left")).
			WithClickCount(1),
		input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.MouseButton("left")).
			WithClickCount(1),
	}

	if req.BoolArg("clear_before_typing") {
		actions = append(actions,
			input.DispatchKeyEvent(input.KeyDown).WithModifiers(input.ModifierCtrl).WithKey("a"),
			input.DispatchKeyEvent(input.KeyUp).WithModifiers(input.ModifierCtrl).WithKey("a"),
			input.DispatchKeyEvent(input.KeyDown).WithKey("Delete"),
			input.DispatchKeyEvent(input.KeyUp).WithKey("Delete"),
		)
	}

	actions = append(actions, input.InsertText(text))

	if req.BoolArg("press_enter") {
		actions = append(actions,
			input.DispatchKeyEvent(input.KeyDown).WithKey("Enter"),
			input.DispatchKeyEvent(input.KeyUp).WithKey("Enter"),
		)
	}

	if err := t.run(ctx, actions...); err != nil {
		return "", fmt.Errorf("type text at (%.0f, %.0f): %w", x, y, err)
	}
	return fmt.Sprintf("Typed %q at (%.0f, %.0f).", text, x, y), nil
}

func (t *Translator) keyCombination(ctx context.Context, req schemas.ActionRequest) (string, error) {
	combo := req.StringArg("keys", "")
	kc, err := ParseCombination(combo)
	if err != nil {
		return "", err
	}

	var actions []chromedp.Action
	keys := kc.Keys
	if len(keys) == 0 {
		// A modifier-only chord presses the modifier keys themselves.
		keys = kc.ModifierKeys
	}
	if kc.IsPaste() {
		t.logger.Debug("Dispatching paste chord", zap.String("keys", combo))
	}
	for _, key := range keys {
		actions = append(actions,
			input.DispatchKeyEvent(input.KeyDown).WithModifiers(kc.Modifiers).WithKey(key),
			input.DispatchKeyEvent(input.KeyUp).WithModifiers(kc.Modifiers).WithKey(key),
		)
	}
	if err := t.run(ctx, actions...); err != nil {
		return "", fmt.Errorf("key combination %q: %w", combo, err)
	}
	return fmt.Sprintf("Pressed %q.", combo), nil
}

func scrollDeltas(direction string, magnitude int) (float64, float64) {
	m := float64(magnitude)
	switch direction {
	case "up":
		return 0, -m
	case "left":
		return -m, 0
	case "right":
		return m, 0
	default: // down
		return 0, m
	}
}

func (t *Translator) scrollAt(ctx context.Context, req schemas.ActionRequest, screen schemas.ScreenSize) (string, error) {
	x, y, err := t.point(req, screen)
	if err != nil {
		return "", err
	}
	direction := req.StringArg("direction", "down")
	magnitude := req.IntArgDefault("magnitude", 800)
	dx, dy := scrollDeltas(direction, magnitude)

	wheel := input.DispatchMouseEvent(input.MouseWheel, x, y).
		WithDeltaX(dx).
		WithDeltaY(dy)
	if err := t.run(ctx, wheel); err != nil {
		return "", fmt.Errorf("scroll %s at (%.0f, %.0f): %w", direction, x, y, err)
	}
	return fmt.Sprintf("Scrolled %s at (%.0f, %.0f).", direction, x, y), nil
}

func (t *Translator) scrollDocument(ctx context.Context, req schemas.ActionRequest, screen schemas.ScreenSize) (string, error) {
	direction := req.StringArg("direction", "down")
	// Document scrolls always use a fixed delta regardless of any
	// magnitude argument the model supplies.
	dx, dy := scrollDeltas(direction, documentScrollDelta)

	// Scroll from the viewport center so the event lands on the document.
	x := float64(screen.Width) / 2
	y := float64(screen.Height) / 2
	wheel := input.DispatchMouseEvent(input.MouseWheel, x, y).
		WithDeltaX(dx).
		WithDeltaY(dy)
	if err := t.run(ctx, wheel); err != nil {
		return "", fmt.Errorf("scroll document %s: %w", direction, err)
	}
	return fmt.Sprintf("Scrolled the document %s.", direction), nil
}

func (t *Translator) navigate(ctx context.Context, req schemas.ActionRequest) (string, error) {
	url := req.StringArg("url", "")
	if url == "" {
		return "", fmt.Errorf("navigate: missing argument %q", "url")
	}
	if err := t.run(ctx, chromedp.Navigate(url)); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}
	return fmt.Sprintf("Navigated to %s.", url), nil
}

func (t *Translator) goBack(ctx context.Context) (string, error) {
	if err := t.run(ctx, chromedp.NavigateBack()); err != nil {
		return "", fmt.Errorf("go back: %w", err)
	}
	return "Navigated back in history.", nil
}

func (t *Translator) goForward(ctx context.Context) (string, error) {
	if err := t.run(ctx, chromedp.NavigateForward()); err != nil {
		return "", fmt.Errorf("go forward: %w", err)
	}
	return "Navigated forward in history.", nil
}

func (t *Translator) wait(ctx context.Context) (string, error) {
	// The wait runs on the raw context, not the dispatch timeout, since five
	// seconds exceeds the timeout on purpose.
	if err := t.exec.Run(ctx, chromedp.Sleep(5*time.Second)); err != nil {
		return "", fmt.Errorf("wait: %w", err)
	}
	return "Waited for 5 seconds.", nil
}

func (t *Translator) dragAndDrop(ctx context.Context, req schemas.ActionRequest, screen schemas.ScreenSize) (string, error) {
	x, y, err := t.point(req, screen)
	if err != nil {
		return "", err
	}
	dnx, err := req.IntArg("destination_x")
	if err != nil {
		return "", err
	}
	dny, err := req.IntArg("destination_y")
	if err != nil {
		return "", err
	}
	dpx, dpy := DenormalizePoint(dnx, dny, screen)
	dx, dy := float64(dpx), float64(dpy)

	actions := []chromedp.Action{
		input.DispatchMouseEvent(input.MouseMoved, x, y),
		input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.MouseButton("left")).
			WithClickCount(1),
	}
	// Intermediate moves so drag targets tracking mousemove see a path, not
	// a teleport.
	for i := 1; i <= dragSteps; i++ {
		f := float64(i) / float64(dragSteps)
		mx := x + (dx-x)*f
		my := y + (dy-y)*f
		actions = append(actions,
			input.DispatchMouseEvent(input.MouseMoved, mx, my).WithButton(input.MouseButton("left")))
	}
	actions = append(actions,
		input.DispatchMouseEvent(input.MouseReleased, dx, dy).
			WithButton(input.MouseButton("left")).
			WithClickCount(1))

	if err := t.run(ctx, actions...); err != nil {
		return "", fmt.Errorf("drag from (%.0f, %.0f) to (%.0f, %.0f): %w", x, y, dx, dy, err)
	}
	return fmt.Sprintf("Dragged from (%.0f, %.0f) to (%.0f, %.0f).", x, y, dx, dy), nil
}

func (t *Translator) search(ctx context.Context) (string, error) {
	if err := t.run(ctx, chromedp.Navigate(searchURL)); err != nil {
		return "", fmt.Errorf("open search page: %w", err)
	}
	return fmt.Sprintf("Opened %s.", searchURL), nil
}
