// File: internal/convo/persist.go
package convo

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// persistedNote marks a screenshot slot whose pixels were dropped when the
// transcript went to disk.
const persistedNote = "[screenshot omitted from persisted transcript]"

// Save writes the conversation transcript to path as JSON. Pixel payloads
// are stripped first: the persisted transcript is the textual action history
// only, suitable for seeding a later run. The in-memory conversation is not
// modified.
func Save(path string, c *Conversation) error {
	stripped := stripImages(c.Messages())

	data, err := json.MarshalIndent(stripped, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling transcript: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating transcript directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

// Load reads a previously saved transcript and returns a conversation seeded
// with it.
func Load(path string) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	var msgs []schemas.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}
	return NewFromMessages(msgs), nil
}

// stripImages deep-copies the messages with every live screenshot replaced
// by a placeholder.
func stripImages(msgs []schemas.Message) []schemas.Message {
	out := make([]schemas.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = schemas.Message{Role: msg.Role, Parts: make([]schemas.Part, len(msg.Parts))}
		for j, part := range msg.Parts {
			stripped := part
			switch {
			case part.Kind == schemas.PartImage && part.Image != nil:
				stripped = schemas.Part{Kind: schemas.PartText, Text: persistedNote}
			case part.Kind == schemas.PartActionResult && part.Result != nil:
				r := *part.Result
				if r.Screenshot != nil {
					r.Screenshot = nil
					r.ScreenshotNote = persistedNote
				}
				stripped.Result = &r
			}
			out[i].Parts[j] = stripped
		}
	}
	return out
}
