package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsTasks(t *testing.T) {
	s := newScheduler(2)
	gen, ctx := s.nextGeneration(context.Background())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		s.schedule(ctx, gen, 0, func(context.Context) { ran.Add(1) })
	}
	s.wait(gen)
	if got := ran.Load(); got != 5 {
		t.Fatalf("ran %d tasks, want 5", got)
	}
}

func TestSchedulerHonorsDelay(t *testing.T) {
	s := newScheduler(1)
	gen, ctx := s.nextGeneration(context.Background())

	start := time.Now()
	s.schedule(ctx, gen, 30*time.Millisecond, func(context.Context) {})
	s.wait(gen)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("task ran after %v, want at least the 30ms delay", elapsed)
	}
}

func TestCancelGenerationStopsPendingTasks(t *testing.T) {
	s := newScheduler(1)
	gen, ctx := s.nextGeneration(context.Background())

	var ran atomic.Int32
	s.schedule(ctx, gen, time.Hour, func(context.Context) { ran.Add(1) })
	s.cancelGeneration(gen)
	s.wait(gen)
	if ran.Load() != 0 {
		t.Fatal("cancelled task still ran")
	}
}

func TestNextGenerationCancelsPrevious(t *testing.T) {
	s := newScheduler(1)
	gen1, ctx1 := s.nextGeneration(context.Background())

	started := make(chan struct{})
	s.schedule(ctx1, gen1, 0, func(taskCtx context.Context) {
		close(started)
		<-taskCtx.Done()
	})
	<-started

	gen2, _ := s.nextGeneration(context.Background())
	if gen2 <= gen1 {
		t.Fatalf("generation did not advance: %d <= %d", gen2, gen1)
	}
	s.wait(gen1)

	select {
	case <-ctx1.Done():
	default:
		t.Fatal("previous generation context not cancelled")
	}
}

func TestAcquireRespectsCancellation(t *testing.T) {
	s := newScheduler(1)
	if !s.acquire(context.Background()) {
		t.Fatal("first acquire should succeed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if s.acquire(ctx) {
		t.Fatal("acquire with a cancelled context should give up")
	}
	s.release()
}
