// File: internal/convo/conversation.go

// Package convo owns the perceive-act conversation history: ordered turns,
// the image retention policy, and persistence of the textual transcript
// across runs.
package convo

import (
	"sync"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

// Conversation is the ordered message history exchanged with the reasoning
// model during a step. It is safe for concurrent use, though the turn loop
// drives it from a single goroutine in practice.
type Conversation struct {
	mu       sync.Mutex
	messages []schemas.Message
}

// New creates an empty conversation.
func New() *Conversation {
	return &Conversation{}
}

// NewFromMessages creates a conversation seeded with an existing transcript,
// e.g. one restored from disk to carry context across tests.
func NewFromMessages(msgs []schemas.Message) *Conversation {
	c := &Conversation{}
	c.messages = append(c.messages, msgs...)
	return c
}

// Append adds one message to the end of the history.
func (c *Conversation) Append(msg schemas.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the ordered history. The message structs are
// shared; callers must not mutate parts in place.
func (c *Conversation) Messages() []schemas.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schemas.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the history.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// LatestUserMessage returns the most recent user message, or false when the
// history holds none. The returned message shares part storage with the
// history; callers must not mutate it.
func (c *Conversation) LatestUserMessage() (schemas.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == schemas.RoleUser {
			return c.messages[i], true
		}
	}
	return schemas.Message{}, false
}

// AttachPerception appends a screenshot to the final user message, creating
// one when the history is empty or ends with an agent turn. This is how the
// initial visual state reaches the model before the first action.
func (c *Conversation) AttachPerception(a *schemas.PerceptionArtifact) {
	c.mu.Lock()
	defer c.mu.Unlock()

	part := schemas.ImagePart(a)
	n := len(c.messages)
	if n == 0 || c.messages[n-1].Role != schemas.RoleUser {
		c.messages = append(c.messages, schemas.Message{
			Role:  schemas.RoleUser,
			Parts: []schemas.Part{part},
		})
		return
	}
	c.messages[n-1].Parts = append(c.messages[n-1].Parts, part)
}

// LiveImageCount reports how many screenshots in the history still carry
// pixel data.
func (c *Conversation) LiveImageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, msg := range c.messages {
		for _, part := range msg.Parts {
			if partHasLiveImage(part) {
				n++
			}
		}
	}
	return n
}

func partHasLiveImage(p schemas.Part) bool {
	switch p.Kind {
	case schemas.PartImage:
		return p.Image != nil && len(p.Image.PNG) > 0
	case schemas.PartActionResult:
		return p.Result != nil && p.Result.Screenshot != nil && len(p.Result.Screenshot.PNG) > 0
	default:
		return false
	}
}
