package trackable

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/isarlink/internal/observability"
)

var (
	ErrDuplicate = errors.New("trackable: isar id already registered")
	ErrNil       = errors.New("trackable: nil entity")
	ErrNotFound  = errors.New("trackable: not found")
)

// Registry indexes entities by isar id and by ID. Enumeration returns
// entities in insertion order. Each instance owns its own lock; nothing is
// shared between registries.
type Registry struct {
	mu     sync.RWMutex
	order  []Entity
	byIsar map[int32]Entity
	byID   map[ID]Entity
}

func NewRegistry() *Registry {
	return &Registry{
		byIsar: make(map[int32]Entity),
		byID:   make(map[ID]Entity),
	}
}

// Add inserts e. A second entity with the same isar id is rejected and the
// registered one is left untouched.
func (r *Registry) Add(e Entity) error {
	if e == nil {
		return ErrNil
	}
	r.mu.Lock()
	if _, ok := r.byIsar[e.IsarID()]; ok {
		r.mu.Unlock()
		log.Warn().
			Int32("isar_id", e.IsarID()).
			Str("kind", e.Kind().String()).
			Msg("trackable.Add duplicate rejected")
		return ErrDuplicate
	}
	r.order = append(r.order, e)
	r.byIsar[e.IsarID()] = e
	r.byID[e.ID()] = e
	n := r.countLocked(e.Kind())
	r.mu.Unlock()

	observability.SetRegistryEntities(e.Kind().String(), n)
	return nil
}

func (r *Registry) Get(isarID int32) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byIsar[isarID]
	return e, ok
}

func (r *Registry) GetByID(id ID) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

func (r *Registry) Contains(isarID int32) bool {
	_, ok := r.Get(isarID)
	return ok
}

func (r *Registry) ContainsID(id ID) bool {
	_, ok := r.GetByID(id)
	return ok
}

// Remove deletes the entity with isarID. Removing an absent entity is a
// no-op and reports false.
func (r *Registry) Remove(isarID int32) bool {
	r.mu.Lock()
	e, ok := r.byIsar[isarID]
	if ok {
		r.removeLocked(e)
	}
	r.mu.Unlock()
	if ok {
		r.publish(e.Kind())
	}
	return ok
}

func (r *Registry) RemoveByID(id ID) bool {
	r.mu.Lock()
	e, ok := r.byID[id]
	if ok {
		r.removeLocked(e)
	}
	r.mu.Unlock()
	if ok {
		r.publish(e.Kind())
	}
	return ok
}

// RemoveIf deletes every entity matching pred and returns them in insertion
// order. pred runs under the registry lock.
func (r *Registry) RemoveIf(pred func(Entity) bool) []Entity {
	r.mu.Lock()
	var removed []Entity
	kept := r.order[:0]
	for _, e := range r.order {
		if pred(e) {
			removed = append(removed, e)
			delete(r.byIsar, e.IsarID())
			delete(r.byID, e.ID())
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = kept
	r.mu.Unlock()

	kinds := map[Kind]struct{}{}
	for _, e := range removed {
		kinds[e.Kind()] = struct{}{}
	}
	for k := range kinds {
		r.publish(k)
	}
	return removed
}

// Find returns the first entity, in insertion order, matching pred.
func (r *Registry) Find(pred func(Entity) bool) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.order {
		if pred(e) {
			return e, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns a snapshot of every entity.
func (r *Registry) All() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) OfKind(k Kind) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entity
	for _, e := range r.order {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}

// AllOfType returns the entities whose concrete type is E.
func AllOfType[E Entity](r *Registry) []E {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []E
	for _, e := range r.order {
		if v, ok := e.(E); ok {
			out = append(out, v)
		}
	}
	return out
}

// Lookup returns the entity with isarID if its concrete type is E.
func Lookup[E Entity](r *Registry, isarID int32) (E, bool) {
	var zero E
	e, ok := r.Get(isarID)
	if !ok {
		return zero, false
	}
	v, ok := e.(E)
	if !ok {
		return zero, false
	}
	return v, true
}

func (r *Registry) removeLocked(e Entity) {
	delete(r.byIsar, e.IsarID())
	delete(r.byID, e.ID())
	for i, cur := range r.order {
		if cur == e {
			copy(r.order[i:], r.order[i+1:])
			r.order[len(r.order)-1] = nil
			r.order = r.order[:len(r.order)-1]
			return
		}
	}
}

func (r *Registry) countLocked(k Kind) int {
	n := 0
	for _, e := range r.order {
		if e.Kind() == k {
			n++
		}
	}
	return n
}

func (r *Registry) publish(k Kind) {
	r.mu.RLock()
	n := r.countLocked(k)
	r.mu.RUnlock()
	observability.SetRegistryEntities(k.String(), n)
}
