package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroTrackAPI/internal/tracker"
)

type fakePurger struct {
	mu    sync.Mutex
	days  []string
	err   error
	calls chan struct{}
}

func (f *fakePurger) PurgeAllStale(ctx context.Context, today string) (int64, error) {
	f.mu.Lock()
	f.days = append(f.days, today)
	f.mu.Unlock()
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return 2, f.err
}

func TestStartAnalysisCleanupWorker_SweepsUntilCancelled(t *testing.T) {
	purger := &fakePurger{calls: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	done := StartAnalysisCleanupWorker(ctx, purger, 10*time.Millisecond)

	select {
	case <-purger.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	purger.mu.Lock()
	defer purger.mu.Unlock()
	require.NotEmpty(t, purger.days)
	assert.Equal(t, tracker.Today(), purger.days[0])
}

func TestCleanupStaleAnalyses_ErrorIsLogged(t *testing.T) {
	purger := &fakePurger{err: errors.New("db down"), calls: make(chan struct{}, 1)}

	assert.NotPanics(t, func() {
		cleanupStaleAnalyses(context.Background(), purger)
	})
	assert.Len(t, purger.days, 1)
}
