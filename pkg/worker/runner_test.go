package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingWorker struct {
	runs atomic.Int32
	err  error
}

func (w *countingWorker) Name() string { return "counting" }

func (w *countingWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	return w.err
}

func TestPeriodicWorkerRunsImmediatelyAndOnTick(t *testing.T) {
	w := &countingWorker{}
	pw := NewPeriodicWorker(w, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	pw.Start(ctx)

	assert.Eventually(t, func() bool { return w.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.True(t, pw.Stop(time.Second))
}

func TestPeriodicWorkerSurvivesErrors(t *testing.T) {
	w := &countingWorker{err: errors.New("boom")}
	pw := NewPeriodicWorker(w, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	pw.Start(ctx)

	assert.Eventually(t, func() bool { return w.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.True(t, pw.Stop(time.Second))
}
