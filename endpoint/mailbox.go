package endpoint

import "sync"

// mailbox is the unbounded, single-consumer, multi-producer FIFO queue
// backing LocalEndPoint.Receive. Once poisoned, post is a no-op and
// receive drains whatever remains before returning ErrEndPointClosed.
type mailbox struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Event
	poisoned bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) post(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poisoned {
		return
	}
	m.queue = append(m.queue, e)
	m.cond.Signal()
}

// poison marks the mailbox closed. Events already queued are still
// delivered; post calls after poison are dropped.
func (m *mailbox) poison() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poisoned {
		return
	}
	m.poisoned = true
	m.cond.Broadcast()
}

// receive blocks until an event is available or the mailbox is poisoned
// and drained, in which case it returns ErrEndPointClosed.
func (m *mailbox) receive() (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 {
		if m.poisoned {
			return nil, ErrEndPointClosed
		}
		m.cond.Wait()
	}
	e := m.queue[0]
	m.queue = m.queue[1:]
	return e, nil
}
