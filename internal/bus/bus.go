// Package bus is the in-process publish/subscribe channel that keeps
// connected dashboards in sync with the camps and requests collections.
//
// A subscriber registers a predicate and receives every matching change
// until it unsubscribes. Channels are bounded: a subscriber that falls
// behind loses events, learns how many through Dropped, and is expected to
// resync from the store. Publishes are serialized, so one record's
// successive states always arrive in write order; ordering across different
// records is not guaranteed. Delivery is at-least-once.
package bus

import (
	"sync"

	"github.com/lifelink/bloodcamp/internal/model"
)

// Collections.
const (
	Camps    = "camps"
	Requests = "requests"
)

// Change types.
const (
	Added    = "added"
	Modified = "modified"
	Removed  = "removed"
)

// Event describes one record change and carries the record's full new
// value. Removed events carry the last known value.
type Event struct {
	Collection string         `json:"collection"`
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Camp       *model.Camp    `json:"camp,omitempty"`
	Request    *model.Request `json:"request,omitempty"`
}

// CampEvent builds a camps-collection event.
func CampEvent(typ string, c *model.Camp) Event {
	return Event{Collection: Camps, Type: typ, ID: c.ID, Camp: c}
}

// RequestEvent builds a requests-collection event.
func RequestEvent(typ string, r *model.Request) Event {
	return Event{Collection: Requests, Type: typ, ID: r.ID, Request: r}
}

// Predicate selects the events a subscriber cares about.
type Predicate func(Event) bool

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

type subscriber struct {
	pred    Predicate
	ch      chan Event
	dropped int
}

// Bus fans record changes out to predicate-scoped subscribers.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Publish delivers ev to every subscriber whose predicate matches. It never
// blocks: when a subscriber's channel is full the event is dropped and the
// subscriber's drop counter bumped instead.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		if !s.pred(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			s.dropped++
		}
	}
}

// Subscribe registers a predicate over the change stream. A buffer of zero
// or less uses DefaultBuffer.
func (b *Bus) Subscribe(pred Predicate, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &subscriber{pred: pred, ch: make(chan Event, buffer)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	return &Subscription{C: s.ch, bus: b, id: id, sub: s}
}

// Subscription is one subscriber's handle. Receive from C until it closes.
type Subscription struct {
	C <-chan Event

	bus *Bus
	id  int
	sub *subscriber
}

// Close unregisters the subscription and closes C. Safe to call more than
// once and safe against a concurrent Publish: removal and channel close
// happen under the same lock that guards delivery.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if _, ok := s.bus.subs[s.id]; !ok {
		return
	}
	delete(s.bus.subs, s.id)
	close(s.sub.ch)
}

// Dropped returns how many events this subscriber has lost to a full
// buffer. A nonzero value means the receiver should resync from the store.
func (s *Subscription) Dropped() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.sub.dropped
}

// AllCamps matches every camp change.
func AllCamps() Predicate {
	return func(ev Event) bool { return ev.Collection == Camps }
}

// CampByOwner matches camp changes for one coordinator's camps.
func CampByOwner(uid string) Predicate {
	return func(ev Event) bool {
		return ev.Collection == Camps && ev.Camp != nil && ev.Camp.CoordinatorUID == uid
	}
}

// RequestsForCamp matches request changes targeting one camp.
func RequestsForCamp(campID string) Predicate {
	return func(ev Event) bool {
		return ev.Collection == Requests && ev.Request != nil && ev.Request.CampID == campID
	}
}

// RequestsForHospital matches request changes belonging to one hospital.
func RequestsForHospital(hospital string) Predicate {
	return func(ev Event) bool {
		return ev.Collection == Requests && ev.Request != nil && ev.Request.Hospital == hospital
	}
}
