package ingestion

import "sync"

const subscriberBuffer = 64

type subscriber struct {
	ch   chan Event
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	closed bool
}

// Subscribe returns a channel of item events and a function that ends the
// subscription and closes the channel. Progress events are dropped for a
// subscriber whose buffer is full; status changes wait for room.
func (q *Queue) Subscribe() (<-chan Event, func()) {
	s := &subscriber{
		ch:   make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}
	q.mu.Lock()
	q.subs[s] = struct{}{}
	q.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			close(s.done)
			q.mu.Lock()
			delete(q.subs, s)
			q.mu.Unlock()
			s.mu.Lock()
			s.closed = true
			close(s.ch)
			s.mu.Unlock()
		})
	}
	return s.ch, cancel
}

func (q *Queue) publish(ev Event, mustDeliver bool) {
	q.mu.Lock()
	subs := make([]*subscriber, 0, len(q.subs))
	for s := range q.subs {
		subs = append(subs, s)
	}
	q.mu.Unlock()

	for _, s := range subs {
		s.send(ev, mustDeliver)
	}
}

func (s *subscriber) send(ev Event, mustDeliver bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !mustDeliver {
		select {
		case s.ch <- ev:
		default:
		}
		return
	}
	select {
	case s.ch <- ev:
	case <-s.done:
	}
}
