// File: internal/runner/verdict_test.go
package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

func TestParseVerdict(t *testing.T) {
	testCases := []struct {
		name        string
		text        string
		wantStatus  schemas.StepStatus
		wantObs     string
	}{
		{
			name:       "pass with observation",
			text:       "VERIFICATION: PASS\nOBSERVATION: The cart shows 2 items.",
			wantStatus: schemas.StepPass,
			wantObs:    "The cart shows 2 items.",
		},
		{
			name:       "fail with observation",
			text:       "VERIFICATION: FAIL\nOBSERVATION: The login form rejected the credentials.",
			wantStatus: schemas.StepFail,
			wantObs:    "The login form rejected the credentials.",
		},
		{
			name:       "case insensitive markers",
			text:       "verification: pass\nobservation: looks good",
			wantStatus: schemas.StepPass,
			wantObs:    "looks good",
		},
		{
			name:       "verdict embedded in narrative",
			text:       "I clicked the button and the dialog closed.\n\nVERIFICATION: PASS\nOBSERVATION: Dialog closed as expected.",
			wantStatus: schemas.StepPass,
			wantObs:    "Dialog closed as expected.",
		},
		{
			name:       "missing marker defaults to fail",
			text:       "Everything looked great, the test totally passed!",
			wantStatus: schemas.StepFail,
			wantObs:    "",
		},
		{
			name:       "empty text defaults to fail",
			text:       "",
			wantStatus: schemas.StepFail,
			wantObs:    "",
		},
		{
			name:       "pass on a later line does not leak into the verdict",
			text:       "VERIFICATION: FAIL\nOBSERVATION: the word pass appears here but the verdict line said fail",
			wantStatus: schemas.StepFail,
			wantObs:    "the word pass appears here but the verdict line said fail",
		},
		{
			name:       "garbled verdict line defaults to fail",
			text:       "VERIFICATION: maybe?\nOBSERVATION: unclear",
			wantStatus: schemas.StepFail,
			wantObs:    "unclear",
		},
		{
			name:       "fail explanation containing pass-like words stays a fail",
			text:       "VERIFICATION: FAIL - the password field rejected the input",
			wantStatus: schemas.StepFail,
			wantObs:    "",
		},
		{
			name:       "verdict word must match exactly",
			text:       "VERIFICATION: PASSWORD reset page never loaded\nOBSERVATION: stuck on login",
			wantStatus: schemas.StepFail,
			wantObs:    "stuck on login",
		},
		{
			name:       "pass token followed by punctuation",
			text:       "VERIFICATION: PASS.\nOBSERVATION: done",
			wantStatus: schemas.StepPass,
			wantObs:    "done",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, obs := ParseVerdict(tc.text)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantObs, obs)
		})
	}
}

func TestExtractFindings(t *testing.T) {
	t.Run("marker present", func(t *testing.T) {
		text := "Let me summarize.\nDEBUG_RESULTS: The API returned 500 on checkout.\nMore detail here."
		assert.Equal(t, "The API returned 500 on checkout.\nMore detail here.", ExtractFindings(text))
	})

	t.Run("marker case insensitive", func(t *testing.T) {
		text := "debug_results: found it"
		assert.Equal(t, "found it", ExtractFindings(text))
	})

	t.Run("missing marker falls back to a leading excerpt", func(t *testing.T) {
		long := "START" + strings.Repeat("x", 800)
		got := ExtractFindings(long)
		assert.Len(t, []rune(got), fallbackResultChars)
		assert.True(t, strings.HasPrefix(got, "START"))
	})

	t.Run("short text without marker returned whole", func(t *testing.T) {
		assert.Equal(t, "nothing notable", ExtractFindings("  nothing notable  "))
	})
}

func FuzzParseVerdict(f *testing.F) {
	f.Add("VERIFICATION: PASS\nOBSERVATION: ok")
	f.Add("VERIFICATION: FAIL")
	f.Add("no markers at all")
	f.Add("")
	f.Fuzz(func(t *testing.T, text string) {
		status, _ := ParseVerdict(text)
		if status != schemas.StepPass && status != schemas.StepFail {
			t.Fatalf("verdict must be pass or fail, got %q", status)
		}
	})
}
