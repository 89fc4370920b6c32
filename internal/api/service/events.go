package service

import (
	"sync"

	"github.com/obralimpa/obralimpa/internal/api/domain"
)

// UserEvents is the in-process observer for user-record changes. The /me
// watch stream subscribes per user; role changes, site assignments and
// invite consumption publish here so gating recomputes reactively instead of
// the client polling.
type UserEvents struct {
	mu   sync.Mutex
	subs map[string]map[int]chan domain.User
	next int
}

func NewUserEvents() *UserEvents {
	return &UserEvents{subs: make(map[string]map[int]chan domain.User)}
}

// Subscribe registers interest in changes to one user. The returned cancel
// function must be called when the subscriber goes away.
func (e *UserEvents) Subscribe(userID string) (<-chan domain.User, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan domain.User, 4)
	if e.subs[userID] == nil {
		e.subs[userID] = make(map[int]chan domain.User)
	}
	id := e.next
	e.next++
	e.subs[userID][id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if set, ok := e.subs[userID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(e.subs, userID)
			}
		}
	}
	return ch, cancel
}

// Publish fans the updated record out to that user's subscribers. A slow
// subscriber with a full buffer misses the event; the next /me read catches
// it up, so delivery here is best effort.
func (e *UserEvents) Publish(u domain.User) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.subs[u.ID] {
		select {
		case ch <- u:
		default:
		}
	}
}
