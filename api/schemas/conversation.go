// File: api/schemas/conversation.go
package schemas

import "time"

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// PartKind discriminates the payload carried by a message part.
type PartKind string

const (
	PartText         PartKind = "text"
	PartImage        PartKind = "image"
	PartActionCall   PartKind = "action_call"
	PartActionResult PartKind = "action_result"
)

// PerceptionArtifact is a captured snapshot of the screen, attached to a
// conversation turn as evidence of the current visual state. The PNG payload
// is stripped when the conversation is persisted to disk.
type PerceptionArtifact struct {
	PNG        []byte    `json:"png,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// ActionRequest is an input action the model asked the harness to perform.
// Only the model ever issues these; the harness answers each one with an
// ActionResult.
type ActionRequest struct {
	Name ActionName     `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ActionResult answers exactly one pending ActionRequest. Outcome is a
// human-readable description of what happened; Screenshot is the post-action
// capture and URL the auxiliary browser state observed alongside it.
//
// When the retention policy evicts the screenshot, Screenshot becomes nil and
// ScreenshotNote records a placeholder so the textual action history survives.
type ActionResult struct {
	Name           ActionName          `json:"name"`
	Outcome        string              `json:"outcome"`
	Screenshot     *PerceptionArtifact `json:"screenshot,omitempty"`
	ScreenshotNote string              `json:"screenshot_note,omitempty"`
	URL            string              `json:"url,omitempty"`
}

// Part is one ordered element of a Message. Exactly one payload field is set,
// matching Kind.
type Part struct {
	Kind    PartKind            `json:"kind"`
	Text    string              `json:"text,omitempty"`
	Image   *PerceptionArtifact `json:"image,omitempty"`
	Call    *ActionRequest      `json:"call,omitempty"`
	Result  *ActionResult       `json:"result,omitempty"`
}

// Message is one conversation turn. Part order within a message, and message
// order within the conversation, are significant: they define turn order as
// seen by the model.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// TextMessage builds a single-part text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Kind: PartText, Text: text}}}
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart builds an image part wrapping a perception artifact.
func ImagePart(a *PerceptionArtifact) Part {
	return Part{Kind: PartImage, Image: a}
}

// ResultPart builds an action-result part.
func ResultPart(r *ActionResult) Part {
	return Part{Kind: PartActionResult, Result: r}
}
