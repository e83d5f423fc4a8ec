// File: internal/runner/prompt_test.go
package runner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

func TestBuildStepPrompt(t *testing.T) {
	step := schemas.ScriptStep{
		Number:        3,
		Action:        "Click the checkout button",
		Precondition:  "Cart contains at least one item",
		Expected:      "The payment form is displayed",
		Postcondition: "URL contains /checkout",
	}

	prompt := BuildStepPrompt(step)
	assert.Contains(t, prompt, "ACTION: Click the checkout button")
	assert.Contains(t, prompt, "PRECONDITION: Cart contains at least one item")
	assert.Contains(t, prompt, "EXPECTED OUTCOME: The payment form is displayed")
	assert.Contains(t, prompt, "POSTCONDITION: URL contains /checkout")
	assert.Contains(t, prompt, "VERIFICATION: PASS or VERIFICATION: FAIL")
	assert.Contains(t, prompt, "OBSERVATION:")
}

func TestBuildStepPromptOmitsEmptyConditions(t *testing.T) {
	prompt := BuildStepPrompt(schemas.ScriptStep{
		Action:   "Open the settings page",
		Expected: "Settings are visible",
	})
	assert.NotContains(t, prompt, "PRECONDITION:")
	assert.NotContains(t, prompt, "POSTCONDITION:")
	assert.Contains(t, prompt, "ACTION: Open the settings page")
}

func TestBuildInstructionPrompt(t *testing.T) {
	prompt := BuildInstructionPrompt("  Check whether the footer links work  ")
	assert.True(t, strings.HasPrefix(prompt, "Check whether the footer links work"))
	assert.Contains(t, prompt, DebugResultsMarker)
}

func TestBuildSystemInstruction(t *testing.T) {
	t.Run("without suffix", func(t *testing.T) {
		sys := BuildSystemInstruction("")
		assert.Contains(t, sys, "QA engineer")
	})

	t.Run("anchors date and environment", func(t *testing.T) {
		sys := BuildSystemInstruction("")
		assert.Contains(t, sys, "Today's date is "+time.Now().Format("Monday, January 2, 2006"))
		assert.Contains(t, sys, "desktop web browser")
	})

	t.Run("with suffix", func(t *testing.T) {
		sys := BuildSystemInstruction("Always answer in German.")
		assert.Contains(t, sys, "QA engineer")
		assert.True(t, strings.HasSuffix(sys, "Always answer in German."))
	})
}
