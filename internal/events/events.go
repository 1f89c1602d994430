// Package events delivers repository change notifications to subscribers.
//
// Delivery is synchronous: Publish returns after every matching handler has
// run, so anything done before Publish is visible to all handlers.
package events

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gitagen/gitagen/internal/git"
)

// Type identifies an event kind.
type Type string

const (
	TypeRepoUpdated      Type = "repoUpdated"
	TypeConflictDetected Type = "conflictDetected"
	TypeRepoError        Type = "repoError"
)

// Event is implemented by all published events.
type Event interface {
	Type() Type
	Project() string
}

// RepoUpdated is published after a project's cache was invalidated.
type RepoUpdated struct {
	ProjectID string    `json:"projectId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (RepoUpdated) Type() Type        { return TypeRepoUpdated }
func (e RepoUpdated) Project() string { return e.ProjectID }

// ConflictDetected is published when a mutation left unresolved conflicts.
type ConflictDetected struct {
	ProjectID string            `json:"projectId"`
	State     git.ConflictState `json:"state"`
}

func (ConflictDetected) Type() Type        { return TypeConflictDetected }
func (e ConflictDetected) Project() string { return e.ProjectID }

// RepoError is published when a mutation failed.
type RepoError struct {
	ProjectID string `json:"projectId"`
	Err       error  `json:"-"`
}

func (RepoError) Type() Type        { return TypeRepoError }
func (e RepoError) Project() string { return e.ProjectID }

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id      string
	seq     uint64
	handler Handler
	types   []Type
}

func (s *subscription) wants(t Type) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, want := range s.types {
		if want == t {
			return true
		}
	}
	return false
}

// Bus fans events out to subscribers. The zero value is not usable; use New.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*subscription
	seq  uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]*subscription)}
}

// Subscribe registers handler for the given types (all types when none are
// given) and returns the subscription id.
func (b *Bus) Subscribe(handler Handler, types ...Type) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub := &subscription{id: uuid.NewString(), seq: b.seq, handler: handler, types: types}
	b.subs[sub.id] = sub
	return sub.id
}

// Unsubscribe removes a subscription. Returns false if id is unknown.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[id]; !ok {
		return false
	}
	delete(b.subs, id)
	return true
}

// Publish delivers e to every matching subscriber in subscription order.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Type()) {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })
	for _, s := range subs {
		s.handler(e)
	}
}
