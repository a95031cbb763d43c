package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerRunsOnStartAndOnTick(t *testing.T) {
	var runs atomic.Int32
	w := NewWorker("test", 10*time.Millisecond, func(ctx context.Context) { runs.Add(1) }, false)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	w.StopWorker()
	<-done
}

func TestMonthlyWorkerSkipsOtherDays(t *testing.T) {
	var runs atomic.Int32
	w := NewWorker("monthly", time.Hour, func(ctx context.Context) { runs.Add(1) }, true)

	w.Now = func() time.Time { return time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC) }
	w.runOnce(context.Background())
	assert.Equal(t, int32(0), runs.Load())

	w.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	w.runOnce(context.Background())
	assert.Equal(t, int32(1), runs.Load())
}

func TestWorkerStopsWithContext(t *testing.T) {
	w := NewWorker("ctx", time.Hour, func(ctx context.Context) {}, false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
