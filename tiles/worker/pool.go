// Package worker runs tile loads on a fixed number of goroutines, lowest
// priority value first.
package worker

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("worker: pool is shut down")

// DefaultTimeout bounds a single task.
const DefaultTimeout = 10 * time.Second

type Pool struct {
	timeout time.Duration

	mu     sync.Mutex
	cond   *sync.Cond
	queue  taskQueue
	seq    uint64
	closed bool
	wg     sync.WaitGroup
}

type Task struct {
	Ctx      context.Context
	Work     func(ctx context.Context) error
	Priority int
	// Done, if set, receives the result of Work.
	Done func(err error)
}

func NewPool(maxWorkers int, timeout time.Duration) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Pool{timeout: timeout}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		task := heap.Pop(&p.queue).(*queued).task
		p.mu.Unlock()

		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	parent := task.Ctx
	if parent == nil {
		parent = context.Background()
	}
	if err := parent.Err(); err != nil {
		if task.Done != nil {
			task.Done(err)
		}
		return
	}
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()
	err := task.Work(ctx)
	if task.Done != nil {
		task.Done(err)
	}
}

// Submit queues a task. It fails only after Shutdown.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.seq++
	heap.Push(&p.queue, &queued{task: task, seq: p.seq})
	p.cond.Signal()
	return nil
}

// Pending returns the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Shutdown drops queued tasks, reporting ErrClosed to their Done callbacks,
// and waits for running tasks to return.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	dropped := p.queue
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, q := range dropped {
		if q.task.Done != nil {
			q.task.Done(ErrClosed)
		}
	}
	p.wg.Wait()
}

type queued struct {
	task Task
	seq  uint64
}

type taskQueue []*queued

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].task.Priority != q[j].task.Priority {
		return q[i].task.Priority < q[j].task.Priority
	}
	return q[i].seq < q[j].seq
}
func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *taskQueue) Push(x any)   { *q = append(*q, x.(*queued)) }
func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
