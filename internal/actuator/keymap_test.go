// File: internal/actuator/keymap_test.go
package actuator

import (
	"testing"

	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKey(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"ctrl", "Control"},
		{"Control", "Control"},
		{"CONTROL", "Control"},
		{"command", "Meta"},
		{"cmd", "Meta"},
		{"option", "Alt"},
		{"esc", "Escape"},
		{"escape", "Escape"},
		{"return", "Enter"},
		{"up", "ArrowUp"},
		{"arrowdown", "ArrowDown"},
		{"pagedown", "PageDown"},
		{"space", " "},
		{"a", "a"},
		{"V", "V"},
		{"f5", "F5"},
		{" tab ", "Tab"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, CanonicalKey(tc.in))
		})
	}
}

func TestParseCombination(t *testing.T) {
	t.Run("modifiers plus key", func(t *testing.T) {
		kc, err := ParseCombination("ctrl+shift+t")
		require.NoError(t, err)
		assert.Equal(t, input.ModifierCtrl|input.ModifierShift, kc.Modifiers)
		assert.Equal(t, []string{"Control", "Shift"}, kc.ModifierKeys)
		assert.Equal(t, []string{"t"}, kc.Keys)
	})

	t.Run("modifiers only", func(t *testing.T) {
		kc, err := ParseCombination("ctrl+shift")
		require.NoError(t, err)
		assert.Equal(t, input.ModifierCtrl|input.ModifierShift, kc.Modifiers)
		assert.Equal(t, []string{"Control", "Shift"}, kc.ModifierKeys)
		assert.Empty(t, kc.Keys)
	})

	t.Run("synonyms resolve", func(t *testing.T) {
		kc, err := ParseCombination("command+v")
		require.NoError(t, err)
		assert.Equal(t, input.ModifierMeta, kc.Modifiers)
		assert.Equal(t, []string{"v"}, kc.Keys)
	})

	t.Run("bare key", func(t *testing.T) {
		kc, err := ParseCombination("Enter")
		require.NoError(t, err)
		assert.Zero(t, kc.Modifiers)
		assert.Equal(t, []string{"Enter"}, kc.Keys)
	})

	t.Run("whitespace tolerated", func(t *testing.T) {
		kc, err := ParseCombination(" ctrl + a ")
		require.NoError(t, err)
		assert.Equal(t, input.ModifierCtrl, kc.Modifiers)
		assert.Equal(t, []string{"a"}, kc.Keys)
	})

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := ParseCombination("")
		assert.Error(t, err)
	})
}

func TestKeyCombinationIsPaste(t *testing.T) {
	paste := func(combo string) bool {
		kc, err := ParseCombination(combo)
		require.NoError(t, err)
		return kc.IsPaste()
	}

	assert.True(t, paste("ctrl+v"))
	assert.True(t, paste("meta+V"))
	assert.True(t, paste("command+v"))
	assert.False(t, paste("ctrl+c"))
	assert.False(t, paste("shift+v"))
	assert.False(t, paste("v"))
}
