package offscreen

import (
	"sync"
	"time"
)

// Scheduler decides when a requested render runs. Renders never run inside
// the call that requested them unless the scheduler does so explicitly.
type Scheduler interface {
	Schedule(fn func())
}

// FrameDelay batches bursts of render requests, such as a run of tile loads,
// into one frame.
const FrameDelay = 16 * time.Millisecond

// FrameScheduler runs each callback on its own goroutine after Delay.
type FrameScheduler struct {
	Delay time.Duration
}

func (s FrameScheduler) Schedule(fn func()) {
	time.AfterFunc(s.Delay, fn)
}

// ManualScheduler queues callbacks until Flush.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []func()
}

func (s *ManualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// Flush runs queued callbacks, including ones they schedule, and returns how
// many ran.
func (s *ManualScheduler) Flush() int {
	n := 0
	for {
		s.mu.Lock()
		queue := s.queue
		s.queue = nil
		s.mu.Unlock()
		if len(queue) == 0 {
			return n
		}
		for _, fn := range queue {
			fn()
			n++
		}
	}
}

func (s *ManualScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
