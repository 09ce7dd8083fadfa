package domain

import (
	"slices"

	"github.com/google/uuid"
)

// UserID identifies a user in the event log.
type UserID int64

// TimestampSeries holds the epoch-second timestamps of one event type for one user.
// Series handed out by an EventIndex are non-decreasing and may contain repeats.
type TimestampSeries []int64

// EventIndex maps user -> event type -> timestamps. It is immutable once built.
type EventIndex struct {
	id         string
	users      []UserID
	series     map[UserID]map[string]TimestampSeries
	eventTypes int
	events     int
}

// ID changes every time an index is built, so results computed against one
// index are never confused with another.
func (ix *EventIndex) ID() string {
	return ix.id
}

// Lookup returns the user's series for eventType. ok=false means the user never
// fired that event, which is the normal "did not reach this step" case.
func (ix *EventIndex) Lookup(user UserID, eventType string) (TimestampSeries, bool) {
	byEvent, ok := ix.series[user]
	if !ok {
		return nil, false
	}
	s, ok := byEvent[eventType]
	return s, ok
}

// Users returns the distinct users in ascending order. Callers must not modify it.
func (ix *EventIndex) Users() []UserID {
	return ix.users
}

func (ix *EventIndex) UserCount() int {
	return len(ix.users)
}

func (ix *EventIndex) EventTypeCount() int {
	return ix.eventTypes
}

func (ix *EventIndex) EventCount() int {
	return ix.events
}

// IndexBuilder collects (user, event, timestamp) records in arrival order.
// It is not safe for concurrent use.
type IndexBuilder struct {
	series     map[UserID]map[string]TimestampSeries
	eventTypes map[string]struct{}
	events     int
}

func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{
		series:     make(map[UserID]map[string]TimestampSeries),
		eventTypes: make(map[string]struct{}),
	}
}

func (b *IndexBuilder) Add(user UserID, eventType string, ts int64) {
	byEvent, ok := b.series[user]
	if !ok {
		byEvent = make(map[string]TimestampSeries)
		b.series[user] = byEvent
	}
	byEvent[eventType] = append(byEvent[eventType], ts)
	b.eventTypes[eventType] = struct{}{}
	b.events++
}

// Build freezes the collected records. Every series is sorted ascending so the
// matcher's ordering contract holds even when the source was not time-ordered;
// repeated timestamps are kept. The builder must not be reused afterwards.
func (b *IndexBuilder) Build() *EventIndex {
	users := make([]UserID, 0, len(b.series))
	for u, byEvent := range b.series {
		users = append(users, u)
		for _, s := range byEvent {
			if !slices.IsSorted(s) {
				slices.Sort(s)
			}
		}
	}
	slices.Sort(users)

	ix := &EventIndex{
		id:         uuid.NewString(),
		users:      users,
		series:     b.series,
		eventTypes: len(b.eventTypes),
		events:     b.events,
	}
	b.series = nil
	b.eventTypes = nil
	return ix
}
