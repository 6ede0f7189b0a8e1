package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/port/trainingdata"
)

// recordTimeout bounds a single background recording.
const recordTimeout = 10 * time.Second

// RecordPool writes routing outcomes in the background with at most limit
// recordings in flight. Submissions beyond that are dropped and counted;
// recording never blocks or fails a routing request.
type RecordPool struct {
	rec trainingdata.Recorder
	sem *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Int64
}

// NewRecordPool creates a pool over rec. A nil rec discards every outcome.
func NewRecordPool(rec trainingdata.Recorder, limit int) *RecordPool {
	if limit < 1 {
		limit = 1
	}
	return &RecordPool{rec: rec, sem: semaphore.NewWeighted(int64(limit))}
}

// Submit schedules o for recording and returns immediately.
func (p *RecordPool) Submit(o routing.Outcome) {
	if p == nil || p.rec == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	if !p.sem.TryAcquire(1) {
		n := p.dropped.Add(1)
		slog.Debug("routing outcome dropped, recorder saturated", "dropped_total", n)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := p.rec.Record(ctx, o); err != nil {
			slog.Warn("failed to record routing outcome", "success", o.Success, "error", err)
		}
	}()
}

// Dropped returns the number of outcomes discarded so far.
func (p *RecordPool) Dropped() int64 {
	if p == nil {
		return 0
	}
	return p.dropped.Load()
}

// Close stops accepting outcomes and waits for in-flight recordings.
func (p *RecordPool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
