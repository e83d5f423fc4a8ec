// File: internal/runner/verdict.go
package runner

import (
	"strings"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

const (
	verificationMarker = "VERIFICATION:"
	observationMarker  = "OBSERVATION:"

	// fallbackResultChars bounds the narrative excerpt used when the
	// model forgot the findings marker.
	fallbackResultChars = 500
)

// ParseVerdict extracts the pass/fail verdict and the observation from a
// final model narrative. Markers match case-insensitively. Only the verdict
// token immediately after the marker counts; a failure explanation that
// happens to contain the word "pass" stays a FAIL. A missing or unreadable
// verification marker is a FAIL, never a PASS: a model that cannot state
// its verdict has not verified anything.
func ParseVerdict(text string) (schemas.StepStatus, string) {
	status := schemas.StepFail
	if rest, ok := textAfterMarker(text, verificationMarker); ok {
		if strings.EqualFold(verdictToken(rest), "pass") {
			status = schemas.StepPass
		}
	}

	observation := ""
	if rest, ok := textAfterMarker(text, observationMarker); ok {
		observation = strings.TrimSpace(rest)
	}
	return status, observation
}

// verdictToken isolates the word immediately after the verification marker,
// skipping leading whitespace and stopping at the first non-letter.
func verdictToken(rest string) string {
	rest = strings.TrimSpace(rest)
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			break
		}
		end++
	}
	return rest[:end]
}

// hasVerdictMarker reports whether the narrative carries the verification
// marker at all.
func hasVerdictMarker(text string) bool {
	_, ok := textAfterMarker(text, verificationMarker)
	return ok
}

// clipNarrative bounds a fallback observation when no marker was found.
func clipNarrative(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) > fallbackResultChars {
		return string(runes[:fallbackResultChars])
	}
	return trimmed
}

// ExtractFindings pulls the findings section out of a free-form instruction
// narrative. When the marker is missing, the leading portion of the
// narrative is returned so the caller still gets something actionable.
func ExtractFindings(text string) string {
	if rest, ok := textAfterMarker(text, DebugResultsMarker); ok {
		return strings.TrimSpace(rest)
	}
	return clipNarrative(text)
}

// textAfterMarker returns everything after the first case-insensitive
// occurrence of marker.
func textAfterMarker(text, marker string) (string, bool) {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(marker))
	if idx < 0 {
		return "", false
	}
	return text[idx+len(marker):], true
}
