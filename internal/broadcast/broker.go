// Package broadcast fans out robot state snapshots to subscribers keyed by robot id.
//
// Publishing never blocks: each subscriber owns a bounded channel and a
// snapshot that does not fit is dropped for that subscriber only.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/oshokin/telerobot/internal/domain/robot"
)

// DefaultBuffer is the per-subscriber channel capacity used when none is given.
const DefaultBuffer = 16

// Broker routes snapshots published for a robot id to that id's subscribers.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool

	dropped atomic.Uint64
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription receives snapshots for one robot id until closed.
type Subscription struct {
	robotID string
	ch      chan robot.State
	broker  *Broker
	once    sync.Once
}

// C returns the channel snapshots are delivered on. It is closed by Close or
// when the broker shuts down.
func (s *Subscription) C() <-chan robot.State {
	return s.ch
}

// RobotID returns the robot this subscription follows.
func (s *Subscription) RobotID() string {
	return s.robotID
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.broker.remove(s)
}

// Subscribe registers a subscriber for robotID with the given channel capacity.
func (b *Broker) Subscribe(robotID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	sub := &Subscription{
		robotID: robotID,
		ch:      make(chan robot.State, buffer),
		broker:  b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.once.Do(func() { close(sub.ch) })

		return sub
	}

	set, ok := b.subs[robotID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[robotID] = set
	}

	set[sub] = struct{}{}

	return sub
}

// Publish hands snapshot to every subscriber of robotID without blocking and
// returns how many subscribers accepted it.
func (b *Broker) Publish(robotID string, snapshot robot.State) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0

	for sub := range b.subs[robotID] {
		select {
		case sub.ch <- snapshot:
			delivered++
		default:
			b.dropped.Add(1)
		}
	}

	return delivered
}

// Dropped returns how many snapshots were discarded because a subscriber was full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribers returns the number of live subscriptions for robotID.
func (b *Broker) Subscribers(robotID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[robotID])
}

// Close closes every subscription channel and rejects new subscribers.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	for robotID, set := range b.subs {
		for sub := range set {
			sub.once.Do(func() { close(sub.ch) })
		}

		delete(b.subs, robotID)
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.subs[sub.robotID]; ok {
		delete(set, sub)

		if len(set) == 0 {
			delete(b.subs, sub.robotID)
		}
	}

	sub.once.Do(func() { close(sub.ch) })
}
