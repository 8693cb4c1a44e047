package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindNotFound, KindOf(E(KindNotFound, "op", "missing")))
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindUnavailable, KindOf(context.Canceled))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := E(KindNotFound, "db.get_entity", "entity not found: X")
	outer := fmt.Errorf("fetch failed: %w", inner)
	assert.True(t, Is(outer, KindNotFound))

	// Wrap must not override an inner kind.
	rewrapped := Wrap(KindUnavailable, "resolve", inner)
	assert.True(t, Is(rewrapped, KindNotFound))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(KindInternal, "op", nil))
}

func TestErrorString(t *testing.T) {
	err := E(KindMissingEmbedding, "find_similar", "entity %q has no embedding", "X")
	assert.Contains(t, err.Error(), "missing_embedding")
	assert.Contains(t, err.Error(), "find_similar")
	assert.Contains(t, err.Error(), `"X"`)
}
