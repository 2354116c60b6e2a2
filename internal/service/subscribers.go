package service

import (
	"log/slog"
	"sync"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

// Subscription is one in-process consumer of the coordinator's event stream.
// Events arrive on C; the first event is always a snapshot of current state.
type Subscription struct {
	C chan swarm.Event

	closeOnce sync.Once
	done      chan struct{}
}

// Close detaches the subscription. Safe to call more than once; the
// coordinator reaps the subscription on its next broadcast.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// subscriberSet fans events out to all live subscriptions. A subscriber that
// cannot keep up loses events rather than slowing the coordinator down.
type subscriberSet struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{subs: make(map[*Subscription]struct{})}
}

// add registers a new subscription and delivers a snapshot event as its
// first message. buildSnapshot runs under the set's lock, so the snapshot
// and the registration are atomic with respect to broadcast: every event
// broadcast after the snapshot was taken reaches the new subscriber.
func (ss *subscriberSet) add(buildSnapshot func() swarm.Event, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &Subscription{
		C:    make(chan swarm.Event, buffer),
		done: make(chan struct{}),
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	sub.C <- buildSnapshot()
	ss.subs[sub] = struct{}{}
	return sub
}

func (ss *subscriberSet) broadcast(ev swarm.Event) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var dead []*Subscription
	for sub := range ss.subs {
		if sub.closed() {
			dead = append(dead, sub)
			continue
		}
		select {
		case sub.C <- ev:
		default:
			slog.Debug("subscriber buffer full, dropping event",
				"event_type", ev.Type, "session_id", ev.SessionID)
		}
	}
	for _, sub := range dead {
		delete(ss.subs, sub)
	}
}

func (ss *subscriberSet) closeAll() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for sub := range ss.subs {
		sub.Close()
		delete(ss.subs, sub)
	}
}

func (ss *subscriberSet) count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.subs)
}
