package domain

import "errors"

// Record is the plain key-value form of an entity used for persistence and comparison.
type Record map[string]any

// Entity is implemented by every persisted calendar entity.
type Entity interface {
	EntityID() string
	ToRecord() Record
}

// Observer is told about successful mutations of an entity it is attached to.
// A registry implements it to persist the entity's current state.
type Observer interface {
	Changed(entity Entity) error
}

// subject holds the observers of one entity. Entities are not safe for
// concurrent mutation; callers serialize access per entity.
type subject struct {
	observers []Observer
}

// Attach registers an observer. Attaching the same observer twice is a no-op.
func (s *subject) Attach(observer Observer) {
	if observer == nil {
		return
	}
	for _, existing := range s.observers {
		if existing == observer {
			return
		}
	}
	s.observers = append(s.observers, observer)
}

// Detach removes a previously attached observer.
func (s *subject) Detach(observer Observer) {
	for i, existing := range s.observers {
		if existing == observer {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Observers reports how many observers are attached.
func (s *subject) Observers() int {
	return len(s.observers)
}

func (s *subject) notify(entity Entity) error {
	var errs []error
	for _, observer := range s.observers {
		if err := observer.Changed(entity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
