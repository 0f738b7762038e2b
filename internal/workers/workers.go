package workers

import (
	"context"
	"log"
	"time"

	"neuroTrackAPI/internal/tracker"
)

// AnalysisPurger deletes analyses whose day is over.
type AnalysisPurger interface {
	PurgeAllStale(ctx context.Context, today string) (int64, error)
}

// StartAnalysisCleanupWorker sweeps stale analyses every interval until ctx is
// cancelled. Reports only live for the day they were generated on; loads
// already hide them, the sweep keeps idle accounts from piling them up.
func StartAnalysisCleanupWorker(ctx context.Context, purger AnalysisPurger, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cleanupStaleAnalyses(ctx, purger)
			case <-ctx.Done():
				return
			}
		}
	}()

	return done
}

func cleanupStaleAnalyses(ctx context.Context, purger AnalysisPurger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	removed, err := purger.PurgeAllStale(ctx, tracker.Today())
	if err != nil {
		log.Printf("Error purging stale analyses: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Purged %d stale analyses", removed)
	}
}
