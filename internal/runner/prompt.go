// File: internal/runner/prompt.go
package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

// baseSystemInstruction frames every run: the model is a QA agent driving a
// real screen and must ground every claim in what it actually observes.
const baseSystemInstruction = `You are a meticulous QA engineer executing test steps against a live application through its user interface.

Work step by step: inspect the current screenshot, decide on at most one UI action at a time, and re-inspect the result before acting again. Never assume an action succeeded; confirm it from the screen. When you cannot find a target element, scroll or navigate to locate it before giving up.`

// stepVerdictInstructions tells the model how to report a step verdict. The
// runner parses these markers out of the final narrative.
const stepVerdictInstructions = `When the step is complete (or you conclude it cannot be completed), stop acting and reply with your verdict in exactly this format:
VERIFICATION: PASS or VERIFICATION: FAIL
OBSERVATION: <one or two sentences describing what you actually observed on screen>`

// DebugResultsMarker prefixes the findings section of a free-form
// instruction run.
const DebugResultsMarker = "DEBUG_RESULTS:"

// instructionResultsInstructions tells the model how to report the outcome
// of a free-form instruction.
var instructionResultsInstructions = fmt.Sprintf(`When you have finished, summarize everything you found in a final message starting with the line %s followed by your findings.`, DebugResultsMarker)

// environmentPreamble anchors the model in time and place: today's date and
// the surface it is operating, so it does not reason from its training
// cutoff or guess at input capabilities.
func environmentPreamble() string {
	return fmt.Sprintf("Today's date is %s. You are operating a desktop web browser through screenshots and synthesized mouse and keyboard input.",
		time.Now().Format("Monday, January 2, 2006"))
}

// BuildSystemInstruction assembles the system prompt, appending the
// caller-supplied behavioral suffix when present.
func BuildSystemInstruction(suffix string) string {
	prompt := environmentPreamble() + "\n\n" + baseSystemInstruction
	if strings.TrimSpace(suffix) == "" {
		return prompt
	}
	return prompt + "\n\n" + strings.TrimSpace(suffix)
}

// BuildStepPrompt renders one script step as the instruction message for a
// verified perceive-act run.
func BuildStepPrompt(step schemas.ScriptStep) string {
	var b strings.Builder
	b.WriteString("Execute this test step on the current screen.\n\n")
	fmt.Fprintf(&b, "ACTION: %s\n", step.Action)
	if step.Precondition != "" {
		fmt.Fprintf(&b, "PRECONDITION: %s\n", step.Precondition)
	}
	fmt.Fprintf(&b, "EXPECTED OUTCOME: %s\n", step.Expected)
	if step.Postcondition != "" {
		fmt.Fprintf(&b, "POSTCONDITION: %s\n", step.Postcondition)
	}
	b.WriteString("\n")
	b.WriteString(stepVerdictInstructions)
	return b.String()
}

// BuildInstructionPrompt renders a free-form instruction for an open-ended
// run that reports findings rather than a pass/fail verdict.
func BuildInstructionPrompt(instruction string) string {
	return strings.TrimSpace(instruction) + "\n\n" + instructionResultsInstructions
}
