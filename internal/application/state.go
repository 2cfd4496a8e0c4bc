package application

import (
	"sync"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/ports"
)

// observable holds one whole value and fans replacements out to subscribers.
// Handlers run synchronously on the writer's goroutine and must not write
// back into the same holder.
type observable[T any] struct {
	mu       sync.RWMutex
	value    T
	nextID   int
	handlers map[int]func(T)
}

func (o *observable[T]) current() T {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.value
}

func (o *observable[T]) set(value T) {
	o.mu.Lock()
	o.value = value
	handlers := make([]func(T), 0, len(o.handlers))
	for _, handler := range o.handlers {
		handlers = append(handlers, handler)
	}
	o.mu.Unlock()

	for _, handler := range handlers {
		handler(value)
	}
}

func (o *observable[T]) subscribe(handler func(T)) ports.Unsubscribe {
	if handler == nil {
		return func() {}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.handlers == nil {
		o.handlers = map[int]func(T){}
	}
	id := o.nextID
	o.nextID++
	o.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.handlers, id)
			o.mu.Unlock()
		})
	}
}

// SessionStore is the process-wide session slot. Only the gate writes it.
type SessionStore struct {
	value observable[*domain.Session]
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Current returns a copy of the held session, or nil when signed out.
func (s *SessionStore) Current() *domain.Session {
	session := s.value.current()
	if session == nil {
		return nil
	}
	clone := *session
	return &clone
}

func (s *SessionStore) Subscribe(handler func(*domain.Session)) ports.Unsubscribe {
	return s.value.subscribe(handler)
}

func (s *SessionStore) replace(session *domain.Session) {
	if session != nil {
		clone := *session
		session = &clone
	}
	s.value.set(session)
}

// StatusStore is the process-wide onboarding snapshot. Only the resolver
// writes it.
type StatusStore struct {
	value observable[domain.OnboardingSnapshot]
}

func NewStatusStore() *StatusStore {
	store := &StatusStore{}
	store.value.value = domain.OnboardingSnapshot{Status: domain.OnboardingLoading}
	return store
}

func (s *StatusStore) Current() domain.OnboardingSnapshot {
	return s.value.current()
}

func (s *StatusStore) Subscribe(handler func(domain.OnboardingSnapshot)) ports.Unsubscribe {
	return s.value.subscribe(handler)
}

func (s *StatusStore) publish(snapshot domain.OnboardingSnapshot) {
	s.value.set(snapshot)
}
