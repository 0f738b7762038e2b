package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type ctxKey string

func TestDetachedContext_SurvivesCallerCancellation(t *testing.T) {
	parent, cancelParent := context.WithTimeout(context.WithValue(context.Background(), ctxKey("k"), "v"), time.Millisecond)

	detached, cancel := detachedContext(parent, time.Minute)
	defer cancel()

	cancelParent()
	<-parent.Done()

	assert.NoError(t, detached.Err())
	assert.Equal(t, "v", detached.Value(ctxKey("k")))

	deadline, ok := detached.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	cancel()
	assert.ErrorIs(t, detached.Err(), context.Canceled)
}
