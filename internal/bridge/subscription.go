package bridge

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the per-subscriber buffer of undelivered statuses.
const DefaultQueueSize = 16

// Unsubscribe removes a status listener. It is idempotent and safe to call
// from inside the listener. Once it returns the listener is not running and
// will not be called again; called from inside the listener it returns
// without waiting for that call.
type Unsubscribe func()

// subscription delivers host pushes to one listener on its own goroutine so
// the host is never blocked by a slow listener.
type subscription struct {
	listener func(UpdateStatus)
	size     int

	mu     sync.Mutex
	queue  []UpdateStatus
	closed bool

	// deliverMu is held across the closed check and the listener call.
	deliverMu sync.Mutex
	deliverer atomic.Uint64 // goroutine id of run

	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
	cancel func() // detaches from the host
}

func newSubscription(listener func(UpdateStatus), size int) *subscription {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &subscription{
		listener: listener,
		size:     size,
		queue:    make([]UpdateStatus, 0, size),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// push enqueues s, dropping the oldest queued status when full. It never
// blocks.
func (s *subscription) push(st UpdateStatus) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) == s.size {
		copy(s.queue, s.queue[1:])
		s.queue = s.queue[:len(s.queue)-1]
	}
	s.queue = append(s.queue, st)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next dequeues under the lock. Callers hold deliverMu.
func (s *subscription) next() (UpdateStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.queue) == 0 {
		return UpdateStatus{}, false
	}
	st := s.queue[0]
	copy(s.queue, s.queue[1:])
	s.queue = s.queue[:len(s.queue)-1]
	return st, true
}

func (s *subscription) run() {
	s.deliverer.Store(goroutineID())
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for s.deliverOne() {
		}
	}
}

// deliverOne hands the oldest queued status to the listener. The closed
// check and the call happen under deliverMu, so close can wait them out.
func (s *subscription) deliverOne() bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	st, ok := s.next()
	if ok {
		s.listener(st)
	}
	return ok
}

func (s *subscription) close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		if s.cancel != nil {
			s.cancel()
		}
		close(s.done)
	})
	if goroutineID() == s.deliverer.Load() {
		// Called by the listener; deliverMu is ours.
		return
	}
	s.deliverMu.Lock()
	s.deliverMu.Unlock()
}

// goroutineID parses the current goroutine's id from its stack header
// ("goroutine 42 [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
