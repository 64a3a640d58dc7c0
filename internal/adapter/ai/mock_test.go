package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_KeyedOnIntent(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	out, err := m.Complete(ctx, "You are a code completion engine.", "code", 10)
	require.NoError(t, err)
	assert.Contains(t, out, "completion")

	out, err = m.Complete(ctx, "This is hint level 2 of 4.", "problem", 10)
	require.NoError(t, err)
	assert.Contains(t, out, "hash map")

	out, err = m.Complete(ctx, "anything else", "x", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestMock_HonorsContext(t *testing.T) {
	m := &Mock{Latency: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Complete(ctx, "s", "u", 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
