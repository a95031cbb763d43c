package workers

import (
	"context"
	"time"
)

const DAY_FOR_MONTHLY_RUNS = 1

type Worker struct {
	Name     string
	Interval time.Duration
	Monthly  bool
	Run      func(ctx context.Context)
	Stop     chan struct{}
	Now      func() time.Time
}

func NewWorker(name string, interval time.Duration, run func(ctx context.Context), monthly bool) *Worker {
	return &Worker{
		Name:     name,
		Interval: interval,
		Monthly:  monthly,
		Run:      run,
		Stop:     make(chan struct{}),
		Now:      time.Now,
	}
}

// Start runs the worker once, then on every tick until StopWorker is called.
// Monthly workers only run on DAY_FOR_MONTHLY_RUNS.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.runOnce(ctx)
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.Stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if w.Monthly && w.Now().Day() != DAY_FOR_MONTHLY_RUNS {
		return
	}
	w.Run(ctx)
}

func (w *Worker) StopWorker() {
	close(w.Stop)
}
