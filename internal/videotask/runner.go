package videotask

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storyforge/internal/logging"
	"storyforge/internal/project"
)

// Runner claims pending video tasks store-wide and drives them to a
// terminal state, one at a time. It backs the daemon's background lane.
type Runner struct {
	store   *project.Store
	tracker *Tracker
	logger  *slog.Logger

	pollInterval  time.Duration
	retryInterval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner constructs a runner with the given polling cadence.
func NewRunner(store *project.Store, tracker *Tracker, pollInterval, retryInterval time.Duration, logger *slog.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if retryInterval <= 0 {
		retryInterval = 30 * time.Second
	}
	return &Runner{
		store:         store,
		tracker:       tracker,
		logger:        logging.NewComponentLogger(logger, "runner"),
		pollInterval:  pollInterval,
		retryInterval: retryInterval,
	}
}

// Start launches the background loop. Calling Start on a running runner is
// a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(runCtx)
	}()
}

// Stop cancels the loop and waits for the in-flight task to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context) {
	r.logger.Info("video task runner started")
	for {
		if ctx.Err() != nil {
			r.logger.Info("video task runner stopped")
			return
		}

		projectID, task, found := r.store.NextPendingTask()
		if !found {
			if err := sleepCtx(ctx, r.pollInterval); err != nil {
				r.logger.Info("video task runner stopped")
				return
			}
			continue
		}

		if err := r.tracker.Process(ctx, projectID, task.ID); err != nil {
			r.logger.Error("task processing failed",
				logging.String(logging.FieldProjectID, projectID),
				logging.String(logging.FieldTaskID, task.ID),
				logging.Error(err))
			if err := sleepCtx(ctx, r.retryInterval); err != nil {
				r.logger.Info("video task runner stopped")
				return
			}
		}
	}
}
