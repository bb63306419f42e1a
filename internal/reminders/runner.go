package reminders

import (
	"context"
	"time"

	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// Runner drives the dispatch loop on a fixed interval until its context is
// cancelled.
type Runner struct {
	dispatcher *Dispatcher
	interval   time.Duration
	logger     *logging.Logger
}

// NewRunner creates a dispatch runner. interval zero means 10 minutes.
func NewRunner(dispatcher *Dispatcher, interval time.Duration, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Runner{dispatcher: dispatcher, interval: interval, logger: logger}
}

// Run blocks, running one pass immediately and then one per tick. A failing
// pass is logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("dispatch runner stopping")
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Runner) pass(ctx context.Context) {
	if _, err := r.dispatcher.ProcessDue(ctx); err != nil {
		r.logger.Error("dispatch pass failed", "error", err)
	}
}
