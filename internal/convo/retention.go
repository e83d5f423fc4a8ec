// File: internal/convo/retention.go
package convo

import "github.com/kestrelqa/kestrel-cli/api/schemas"

// evictedNote replaces a screenshot that aged out of the retention window.
// The textual action history around it survives untouched.
const evictedNote = "[screenshot removed to conserve context]"

// ApplyRetention evicts the pixel payloads of all but the most recent keep
// action-result screenshots, replacing each with a placeholder note. The
// policy is scoped to action results: the instruction screenshot attached
// to a user message does not count against the budget and is never evicted.
// Message order and all text content are preserved. It returns the number
// of screenshots evicted.
//
// keep < 0 disables eviction entirely; keep == 0 evicts every action-result
// screenshot.
func (c *Conversation) ApplyRetention(keep int) int {
	if keep < 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Walk newest to oldest, sparing the first keep live screenshots.
	spared := 0
	evicted := 0
	for i := len(c.messages) - 1; i >= 0; i-- {
		parts := c.messages[i].Parts
		for j := len(parts) - 1; j >= 0; j-- {
			p := &parts[j]
			if p.Kind != schemas.PartActionResult || p.Result == nil ||
				p.Result.Screenshot == nil || len(p.Result.Screenshot.PNG) == 0 {
				continue
			}
			if spared < keep {
				spared++
				continue
			}
			p.Result.Screenshot = nil
			p.Result.ScreenshotNote = evictedNote
			evicted++
		}
	}
	return evicted
}
