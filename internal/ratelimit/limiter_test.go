package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestWaitCancelled(t *testing.T) {
	l := NewWithBurst("Test", 1, 1)
	// Drain the burst so the next Wait would block.
	assert.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Test")
}

func TestAllowWithinRate(t *testing.T) {
	l := New("Test", 2)
	assert.Equal(t, "Test", l.Name())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}
