package engine

import (
	"sync"
	"time"
)

// pool runs jobs on at most size goroutines. Jobs queue without bound so
// submit never blocks; idle workers exit after keepAlive and are respawned
// on demand.
type pool struct {
	size      int
	keepAlive time.Duration

	mu      sync.Mutex
	queue   []func()
	workers int
	idle    int
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func newPool(size int, keepAlive time.Duration) *pool {
	return &pool{
		size:      size,
		keepAlive: keepAlive,
		wake:      make(chan struct{}, size),
		done:      make(chan struct{}),
	}
}

// submit queues a job. Returns false once the pool is closed.
func (p *pool) submit(job func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	p.queue = append(p.queue, job)

	if p.idle > 0 {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	// Idle workers take one job each; anything beyond that needs a new worker
	if p.workers < p.size && len(p.queue) > p.idle {
		p.workers++
		p.wg.Add(1)
		go p.worker()
	}

	return true
}

func (p *pool) worker() {
	defer p.wg.Done()

	timer := time.NewTimer(p.keepAlive)
	defer timer.Stop()

	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			job := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			p.mu.Unlock()

			job()
			continue
		}
		if p.closed {
			p.workers--
			p.mu.Unlock()
			return
		}
		p.idle++
		p.mu.Unlock()

		timer.Reset(p.keepAlive)

		select {
		case <-p.wake:
		case <-p.done:
		case <-timer.C:
			p.mu.Lock()
			if len(p.queue) == 0 {
				p.idle--
				p.workers--
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
		}

		p.mu.Lock()
		p.idle--
		p.mu.Unlock()
	}
}

// close stops accepting jobs and waits until every queued job has run
func (p *pool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// stats returns the live and idle worker counts
func (p *pool) stats() (workers, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers, p.idle
}
