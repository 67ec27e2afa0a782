package pipeline

import (
	"context"
	"sync"
	"time"
)

// scheduler runs stage tasks with optional start delays, tagging every task
// with the generation it was scheduled under. Cancelling a generation stops
// its pending delays and in-flight contexts at once; late completions are
// discarded by callers comparing the task's generation against the current
// one.
type scheduler struct {
	mu         sync.Mutex
	generation uint64
	cancels    map[uint64]context.CancelFunc
	waits      map[uint64]*sync.WaitGroup
	sem        chan struct{}
}

func newScheduler(concurrency int) *scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &scheduler{
		cancels: make(map[uint64]context.CancelFunc),
		waits:   make(map[uint64]*sync.WaitGroup),
		sem:     make(chan struct{}, concurrency),
	}
}

// nextGeneration cancels the current generation and opens a new one rooted
// at parent.
func (s *scheduler) nextGeneration(parent context.Context) (uint64, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[s.generation]; ok {
		cancel()
		delete(s.cancels, s.generation)
	}
	s.generation++
	ctx, cancel := context.WithCancel(parent)
	s.cancels[s.generation] = cancel
	s.waits[s.generation] = &sync.WaitGroup{}
	return s.generation, ctx
}

// current returns the active generation.
func (s *scheduler) current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// cancelGeneration stops all tasks scheduled under gen.
func (s *scheduler) cancelGeneration(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[gen]; ok {
		cancel()
		delete(s.cancels, gen)
	}
}

// schedule queues task to run after delay. Tasks acquire concurrency slots
// themselves around actual stage work, so waiting on a dependency never
// holds a slot.
func (s *scheduler) schedule(ctx context.Context, gen uint64, delay time.Duration, task func(context.Context)) {
	s.mu.Lock()
	wg, ok := s.waits[gen]
	s.mu.Unlock()
	if !ok {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		task(ctx)
	}()
}

// acquire claims a concurrency slot, giving up when ctx is cancelled.
func (s *scheduler) acquire(ctx context.Context) bool {
	select {
	case s.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// release returns a slot claimed with acquire.
func (s *scheduler) release() {
	<-s.sem
}

// wait blocks until every task of gen has finished or been cancelled.
func (s *scheduler) wait(gen uint64) {
	s.mu.Lock()
	wg, ok := s.waits[gen]
	s.mu.Unlock()
	if !ok {
		return
	}
	wg.Wait()
	s.mu.Lock()
	delete(s.waits, gen)
	s.mu.Unlock()
}
