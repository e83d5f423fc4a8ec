// File: internal/convo/conversation_test.go
package convo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

func shot(payload string) *schemas.PerceptionArtifact {
	return &schemas.PerceptionArtifact{PNG: []byte(payload), CapturedAt: time.Now()}
}

func resultWithShot(outcome, payload string) schemas.Part {
	return schemas.ResultPart(&schemas.ActionResult{
		Name:       schemas.ActionClickAt,
		Outcome:    outcome,
		Screenshot: shot(payload),
		URL:        "https://example.com",
	})
}

func TestConversationAppendAndOrder(t *testing.T) {
	c := New()
	c.Append(schemas.TextMessage(schemas.RoleUser, "first"))
	c.Append(schemas.TextMessage(schemas.RoleAgent, "second"))
	c.Append(schemas.TextMessage(schemas.RoleUser, "third"))

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Parts[0].Text)
	assert.Equal(t, schemas.RoleAgent, msgs[1].Role)
	assert.Equal(t, "third", msgs[2].Parts[0].Text)
	assert.Equal(t, 3, c.Len())
}

func TestLatestUserMessage(t *testing.T) {
	c := New()
	_, ok := c.LatestUserMessage()
	assert.False(t, ok)

	c.Append(schemas.TextMessage(schemas.RoleUser, "first"))
	c.Append(schemas.TextMessage(schemas.RoleAgent, "working"))
	c.Append(schemas.TextMessage(schemas.RoleUser, "second"))
	c.Append(schemas.TextMessage(schemas.RoleAgent, "done"))

	msg, ok := c.LatestUserMessage()
	require.True(t, ok)
	assert.Equal(t, "second", msg.Parts[0].Text)
}

func TestAttachPerception(t *testing.T) {
	t.Run("appends to trailing user message", func(t *testing.T) {
		c := New()
		c.Append(schemas.TextMessage(schemas.RoleUser, "do the thing"))
		c.AttachPerception(shot("png1"))

		msgs := c.Messages()
		require.Len(t, msgs, 1)
		require.Len(t, msgs[0].Parts, 2)
		assert.Equal(t, schemas.PartImage, msgs[0].Parts[1].Kind)
	})

	t.Run("creates a user message after an agent turn", func(t *testing.T) {
		c := New()
		c.Append(schemas.TextMessage(schemas.RoleUser, "do the thing"))
		c.Append(schemas.TextMessage(schemas.RoleAgent, "ok"))
		c.AttachPerception(shot("png1"))

		msgs := c.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, schemas.RoleUser, msgs[2].Role)
	})

	t.Run("creates a user message when empty", func(t *testing.T) {
		c := New()
		c.AttachPerception(shot("png1"))
		assert.Equal(t, 1, c.Len())
	})
}

func TestApplyRetention(t *testing.T) {
	build := func() *Conversation {
		c := New()
		c.Append(schemas.TextMessage(schemas.RoleUser, "step"))
		c.AttachPerception(shot("s0"))
		c.Append(schemas.Message{Role: schemas.RoleUser, Parts: []schemas.Part{resultWithShot("clicked", "s1")}})
		c.Append(schemas.Message{Role: schemas.RoleUser, Parts: []schemas.Part{resultWithShot("typed", "s2")}})
		c.Append(schemas.Message{Role: schemas.RoleUser, Parts: []schemas.Part{resultWithShot("scrolled", "s3")}})
		return c
	}

	t.Run("keeps the newest result screenshots", func(t *testing.T) {
		c := build()
		require.Equal(t, 4, c.LiveImageCount())

		evicted := c.ApplyRetention(2)
		assert.Equal(t, 1, evicted)
		assert.Equal(t, 3, c.LiveImageCount())

		msgs := c.Messages()
		// The instruction screenshot is outside the policy and stays live.
		assert.Equal(t, schemas.PartImage, msgs[0].Parts[1].Kind)
		require.NotNil(t, msgs[0].Parts[1].Image)
		assert.NotEmpty(t, msgs[0].Parts[1].Image.PNG)
		// Oldest action result lost its pixels but kept its outcome.
		r := msgs[1].Parts[0].Result
		require.NotNil(t, r)
		assert.Nil(t, r.Screenshot)
		assert.Equal(t, evictedNote, r.ScreenshotNote)
		assert.Equal(t, "clicked", r.Outcome)
		// Newest two untouched.
		assert.NotNil(t, msgs[2].Parts[0].Result.Screenshot)
		assert.NotNil(t, msgs[3].Parts[0].Result.Screenshot)
	})

	t.Run("idempotent", func(t *testing.T) {
		c := build()
		c.ApplyRetention(2)
		assert.Equal(t, 0, c.ApplyRetention(2))
		assert.Equal(t, 3, c.LiveImageCount())
	})

	t.Run("zero evicts every result screenshot", func(t *testing.T) {
		c := build()
		assert.Equal(t, 3, c.ApplyRetention(0))
		// Only the instruction screenshot remains live.
		assert.Equal(t, 1, c.LiveImageCount())
	})

	t.Run("instruction screenshot does not consume the budget", func(t *testing.T) {
		c := build()
		// A new step attaches a fresh screenshot after the results.
		c.Append(schemas.TextMessage(schemas.RoleUser, "next step"))
		c.AttachPerception(shot("s4"))

		assert.Equal(t, 0, c.ApplyRetention(3))
		msgs := c.Messages()
		// All three result screenshots must survive: min(3, 3) = 3.
		for _, i := range []int{1, 2, 3} {
			require.NotNil(t, msgs[i].Parts[0].Result.Screenshot, "message %d", i)
		}
	})

	t.Run("negative disables eviction", func(t *testing.T) {
		c := build()
		assert.Equal(t, 0, c.ApplyRetention(-1))
		assert.Equal(t, 4, c.LiveImageCount())
	})

	t.Run("keep larger than history", func(t *testing.T) {
		c := build()
		assert.Equal(t, 0, c.ApplyRetention(10))
		assert.Equal(t, 4, c.LiveImageCount())
	})
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "transcript.json")

	c := New()
	c.Append(schemas.TextMessage(schemas.RoleUser, "run the test"))
	c.AttachPerception(shot("pixels"))
	c.Append(schemas.Message{Role: schemas.RoleUser, Parts: []schemas.Part{resultWithShot("clicked", "more-pixels")}})
	c.Append(schemas.TextMessage(schemas.RoleAgent, "done"))

	require.NoError(t, Save(path, c))

	// Pixels never reach disk.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pixels")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, c.Len(), loaded.Len())
	assert.Equal(t, 0, loaded.LiveImageCount())

	msgs := loaded.Messages()
	assert.Equal(t, "run the test", msgs[0].Parts[0].Text)
	r := msgs[1].Parts[0].Result
	require.NotNil(t, r)
	assert.Equal(t, "clicked", r.Outcome)
	assert.Equal(t, persistedNote, r.ScreenshotNote)

	// Saving does not disturb the in-memory history.
	assert.Equal(t, 2, c.LiveImageCount())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestStripImagesDeepCopies(t *testing.T) {
	orig := []schemas.Message{
		{Role: schemas.RoleUser, Parts: []schemas.Part{resultWithShot("clicked", "img")}},
	}
	stripped := stripImages(orig)

	require.NotNil(t, orig[0].Parts[0].Result.Screenshot, "original untouched")
	assert.Nil(t, stripped[0].Parts[0].Result.Screenshot)

	if diff := cmp.Diff(orig[0].Parts[0].Result.Outcome, stripped[0].Parts[0].Result.Outcome); diff != "" {
		t.Errorf("outcome text changed by stripping (-orig +stripped):\n%s", diff)
	}
}
