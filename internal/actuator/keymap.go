// File: internal/actuator/keymap.go
package actuator

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/input"
)

// keySynonyms maps the loose key names the reasoning model emits to the DOM
// key values the input domain expects. Lookup is case-insensitive.
var keySynonyms = map[string]string{
	"ctrl":       "Control",
	"control":    "Control",
	"alt":        "Alt",
	"option":     "Alt",
	"shift":      "Shift",
	"meta":       "Meta",
	"cmd":        "Meta",
	"command":    "Meta",
	"super":      "Meta",
	"win":        "Meta",
	"esc":        "Escape",
	"escape":     "Escape",
	"enter":      "Enter",
	"return":     "Enter",
	"backspace":  "Backspace",
	"del":        "Delete",
	"delete":     "Delete",
	"tab":        "Tab",
	"space":      " ",
	"spacebar":   " ",
	"up":         "ArrowUp",
	"arrowup":    "ArrowUp",
	"down":       "ArrowDown",
	"arrowdown":  "ArrowDown",
	"left":       "ArrowLeft",
	"arrowleft":  "ArrowLeft",
	"right":      "ArrowRight",
	"arrowright": "ArrowRight",
	"home":       "Home",
	"end":        "End",
	"pageup":     "PageUp",
	"pagedown":   "PageDown",
	"insert":     "Insert",
}

// modifierBits maps canonical modifier key values to their CDP bitmask.
var modifierBits = map[string]input.Modifier{
	"Control": input.ModifierCtrl,
	"Alt":     input.ModifierAlt,
	"Shift":   input.ModifierShift,
	"Meta":    input.ModifierMeta,
}

// CanonicalKey translates a model-emitted key name to its DOM key value.
// Single characters pass through unchanged; unknown multi-character names
// are title-cased so names like "f5" still resolve to something dispatchable.
func CanonicalKey(name string) string {
	trimmed := strings.TrimSpace(name)
	if mapped, ok := keySynonyms[strings.ToLower(trimmed)]; ok {
		return mapped
	}
	if len([]rune(trimmed)) == 1 {
		return trimmed
	}
	lower := strings.ToLower(trimmed)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// KeyCombination is a parsed key chord: a modifier bitmask plus the
// non-modifier keys pressed under it, in emission order. ModifierKeys holds
// the canonical names of the modifiers so a chord with no plain keys can
// still press the modifiers themselves.
type KeyCombination struct {
	Modifiers    input.Modifier
	ModifierKeys []string
	Keys         []string
}

// ParseCombination parses a "+"-joined chord such as "ctrl+shift+t" into
// canonical modifiers and keys.
func ParseCombination(combo string) (KeyCombination, error) {
	var kc KeyCombination
	tokens := strings.Split(combo, "+")
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key := CanonicalKey(tok)
		if bit, ok := modifierBits[key]; ok {
			kc.Modifiers |= bit
			kc.ModifierKeys = append(kc.ModifierKeys, key)
			continue
		}
		kc.Keys = append(kc.Keys, key)
	}
	if kc.Modifiers == 0 && len(kc.Keys) == 0 {
		return kc, fmt.Errorf("empty key combination %q", combo)
	}
	return kc, nil
}

// IsPaste reports whether the chord is a platform paste shortcut
// (Control+V or Meta+V).
func (kc KeyCombination) IsPaste() bool {
	if len(kc.Keys) != 1 || !strings.EqualFold(kc.Keys[0], "v") {
		return false
	}
	return kc.Modifiers&(input.ModifierCtrl|input.ModifierMeta) != 0
}
