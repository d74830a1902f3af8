package engine

import "sync"

// Executor runs write-backs serially, in submission order, on one owner
type Executor interface {
	Submit(fn func())
}

// Mailbox queues write-backs for a loop owned by the caller, typically the
// simulation loop that owns the building entities. The owner waits on Ready
// and calls Drain; Drain must only ever be called from that one goroutine.
type Mailbox struct {
	mu      sync.Mutex
	pending []func()
	ready   chan struct{}
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{
		ready: make(chan struct{}, 1),
	}
}

// Submit queues fn and signals Ready. Safe for concurrent use.
func (m *Mailbox) Submit(fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Ready receives a value whenever write-backs may be pending
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Drain runs every queued write-back on the calling goroutine and returns how many ran
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Len returns the number of queued write-backs
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// SerialExecutor owns a single goroutine that drains a mailbox.
// Used when no simulation loop is available to own the write-backs.
type SerialExecutor struct {
	mailbox *Mailbox
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewSerialExecutor starts the executor's goroutine
func NewSerialExecutor() *SerialExecutor {
	s := &SerialExecutor{
		mailbox: NewMailbox(),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit queues fn on the executor's goroutine
func (s *SerialExecutor) Submit(fn func()) {
	s.mailbox.Submit(fn)
}

func (s *SerialExecutor) run() {
	defer close(s.stopped)

	for {
		select {
		case <-s.mailbox.Ready():
			s.mailbox.Drain()
		case <-s.stop:
			// Write-backs submitted before Close still run
			for s.mailbox.Drain() > 0 {
			}
			return
		}
	}
}

// Close runs whatever is still queued, then stops the goroutine
func (s *SerialExecutor) Close() {
	s.once.Do(func() {
		close(s.stop)
	})
	<-s.stopped
}
