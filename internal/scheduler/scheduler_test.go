package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingScanner struct {
	scans atomic.Int32
}

func (s *countingScanner) Scan(context.Context) error {
	s.scans.Add(1)
	return nil
}

// blockingScanner holds every scan until released.
type blockingScanner struct {
	started chan struct{}
	release chan struct{}
	scans   atomic.Int32
}

func (s *blockingScanner) Scan(context.Context) error {
	s.scans.Add(1)
	s.started <- struct{}{}
	<-s.release
	return nil
}

func TestRunScansImmediately(t *testing.T) {
	scanner := &countingScanner{}
	sched := New(scanner, zap.NewNop(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		return scanner.scans.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestRunTicksOnInterval(t *testing.T) {
	scanner := &countingScanner{}
	sched := New(scanner, zap.NewNop(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		return scanner.scans.Load() >= 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestRunSkipsOverlappingScans(t *testing.T) {
	scanner := &blockingScanner{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sched := New(scanner, zap.NewNop(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	// The immediate scan is now blocked; several ticks elapse while it
	// holds the running flag and every one of them must be skipped.
	<-scanner.started
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), scanner.scans.Load())

	close(scanner.release)
	cancel()
	wg.Wait()
}

func TestRunStopsOnCancel(t *testing.T) {
	scanner := &countingScanner{}
	sched := New(scanner, zap.NewNop(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
