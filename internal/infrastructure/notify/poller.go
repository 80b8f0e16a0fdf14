package notify

import (
	"context"
	"time"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

// StatusFetcher reads the authoritative completion state of a review job.
// done is false while the job is still running.
type StatusFetcher func(ctx context.Context) (completion domain.ReviewCompletion, done bool, err error)

// Poller is the client-side correctness backstop: push events are
// at-most-once hints, so subscribers re-fetch authoritative state on a
// fixed interval until the job resolves. A received push event stops the
// polling loop and triggers one final fetch.
type Poller struct {
	interval time.Duration
}

func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{interval: interval}
}

// Await blocks until the job resolves, the push channel signals, or the
// context ends. Fetch errors are tolerated: a failed poll just waits for
// the next tick.
func (p *Poller) Await(ctx context.Context, fetch StatusFetcher, push <-chan domain.PushEvent) (domain.ReviewCompletion, error) {
	// One immediate fetch: the job may already be done before the first tick.
	if completion, done, err := fetch(ctx); err == nil && done {
		return completion, nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.ReviewCompletion{}, ctx.Err()
		case <-push:
			// The push event is a hint, not the state itself.
			completion, _, err := fetch(ctx)
			if err != nil {
				return domain.ReviewCompletion{}, err
			}
			return completion, nil
		case <-ticker.C:
			completion, done, err := fetch(ctx)
			if err != nil {
				continue
			}
			if done {
				return completion, nil
			}
		}
	}
}
