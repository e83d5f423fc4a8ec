// File: api/schemas/actions.go
package schemas

import (
	"fmt"
	"strconv"
)

// ActionName is the closed set of input actions the harness understands.
// The set mirrors the action schema advertised to the reasoning model; any
// name outside it is handled through the explicit unrecognized path rather
// than aborting the turn.
type ActionName string

const (
	ActionClickAt        ActionName = "click_at"
	ActionHoverAt        ActionName = "hover_at"
	ActionTypeTextAt     ActionName = "type_text_at"
	ActionKeyCombination ActionName = "key_combination"
	ActionScrollAt       ActionName = "scroll_at"
	ActionScrollDocument ActionName = "scroll_document"
	ActionNavigate       ActionName = "navigate"
	ActionGoBack         ActionName = "go_back"
	ActionGoForward      ActionName = "go_forward"
	ActionWait5Seconds   ActionName = "wait_5_seconds"
	ActionOpenWebBrowser ActionName = "open_web_browser"
	ActionDragAndDrop    ActionName = "drag_and_drop"
	ActionSearch         ActionName = "search"
)

// KnownActions returns every action name the harness can execute, in a
// stable order.
func KnownActions() []ActionName {
	return []ActionName{
		ActionClickAt, ActionHoverAt, ActionTypeTextAt, ActionKeyCombination,
		ActionScrollAt, ActionScrollDocument, ActionNavigate, ActionGoBack,
		ActionGoForward, ActionWait5Seconds, ActionOpenWebBrowser,
		ActionDragAndDrop, ActionSearch,
	}
}

// Known reports whether the name is part of the advertised action schema.
func (n ActionName) Known() bool {
	for _, k := range KnownActions() {
		if n == k {
			return true
		}
	}
	return false
}

// ScreenSize is the pixel geometry of the surface actions are executed
// against.
type ScreenSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IntArg extracts a named integer argument. Model-issued argument maps carry
// JSON numbers, so float64, int and numeric strings are all accepted.
func (r *ActionRequest) IntArg(name string) (int, error) {
	v, ok := r.Args[name]
	if !ok {
		return 0, fmt.Errorf("action %s: missing argument %q", r.Name, name)
	}
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		i, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("action %s: argument %q is not an integer: %w", r.Name, name, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("action %s: argument %q has unsupported type %T", r.Name, name, v)
	}
}

// StringArg extracts a named string argument, returning the fallback when
// the argument is absent.
func (r *ActionRequest) StringArg(name, fallback string) string {
	v, ok := r.Args[name]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

// BoolArg extracts a named boolean argument, returning false when absent or
// not a boolean.
func (r *ActionRequest) BoolArg(name string) bool {
	v, ok := r.Args[name]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// IntArgDefault extracts a named integer argument, returning the fallback
// when the argument is absent or malformed.
func (r *ActionRequest) IntArgDefault(name string, fallback int) int {
	i, err := r.IntArg(name)
	if err != nil {
		return fallback
	}
	return i
}
