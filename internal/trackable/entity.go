// Package trackable holds the entities reported by the host and the registry
// that indexes them by both identities.
package trackable

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ID is the process-local identity handed to consumers. It is assigned at
// construction and never derived from wire values.
type ID uuid.UUID

var InvalidID ID

func NewID() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

func (id ID) Valid() bool {
	return id != InvalidID
}

type UpdateType int

const (
	UpdateNone UpdateType = iota
	UpdateAdded
	UpdateUpdated
	UpdateRemoved
)

func (u UpdateType) String() string {
	switch u {
	case UpdateNone:
		return "none"
	case UpdateAdded:
		return "added"
	case UpdateUpdated:
		return "updated"
	case UpdateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("UpdateType(%d)", int(u))
	}
}

type Kind int

const (
	KindPlane Kind = iota + 1
	KindImage
	KindQRCode
)

func (k Kind) String() string {
	switch k {
	case KindPlane:
		return "plane"
	case KindImage:
		return "image"
	case KindQRCode:
		return "qr_code"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entity is the registry's view of a trackable.
type Entity interface {
	IsarID() int32
	ID() ID
	Kind() Kind
	UpdateType() UpdateType
	HasChanges() bool
	// Acknowledge clears the dirty flag and returns the update type the
	// consumer just observed.
	Acknowledge() UpdateType
	// MarkRemoved moves the entity to its terminal state. It reports false
	// when the entity was already removed.
	MarkRemoved() bool
}

// Tracked is an entity with a kind-specific payload. Payload values are
// replaced wholesale on update and never mutated in place, so a value
// returned by Payload may be read without holding the lock.
type Tracked[T any] struct {
	mu         sync.Mutex
	isarID     int32
	id         ID
	kind       Kind
	updateType UpdateType
	hasChanges bool
	payload    T
}

func newTracked[T any](kind Kind, isarID int32, payload T) *Tracked[T] {
	e := &Tracked[T]{
		isarID:  isarID,
		id:      NewID(),
		kind:    kind,
		payload: payload,
	}
	e.mark(UpdateAdded)
	return e
}

func (e *Tracked[T]) IsarID() int32 { return e.isarID }
func (e *Tracked[T]) ID() ID        { return e.id }
func (e *Tracked[T]) Kind() Kind    { return e.kind }

func (e *Tracked[T]) UpdateType() UpdateType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateType
}

func (e *Tracked[T]) HasChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasChanges
}

func (e *Tracked[T]) Payload() T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payload
}

// Snapshot returns the payload with the lifecycle state in one critical
// section.
func (e *Tracked[T]) Snapshot() (T, UpdateType, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payload, e.updateType, e.hasChanges
}

// Update replaces the payload and records an Updated transition. Removed
// entities reject updates.
func (e *Tracked[T]) Update(payload T) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.updateType == UpdateRemoved {
		return false
	}
	e.payload = payload
	e.mark(UpdateUpdated)
	return true
}

// Modify applies fn to a copy of the payload and stores the result as an
// update. fn runs under the entity lock and must not call back into it.
func (e *Tracked[T]) Modify(fn func(T) T) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.updateType == UpdateRemoved {
		return false
	}
	e.payload = fn(e.payload)
	e.mark(UpdateUpdated)
	return true
}

func (e *Tracked[T]) MarkRemoved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.updateType == UpdateRemoved {
		return false
	}
	e.updateType = UpdateRemoved
	e.hasChanges = true
	return true
}

// Poll returns the payload and pending state and clears the dirty flag in
// one critical section. changed is false when nothing was pending.
func (e *Tracked[T]) Poll() (payload T, ut UpdateType, changed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed = e.hasChanges
	e.hasChanges = false
	return e.payload, e.updateType, changed
}

func (e *Tracked[T]) Acknowledge() UpdateType {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hasChanges = false
	return e.updateType
}

// mark coalesces t into the pending state. An unread transition is kept
// unless it is None; the payload still reflects the latest update.
func (e *Tracked[T]) mark(t UpdateType) {
	if !e.hasChanges || e.updateType == UpdateNone {
		e.updateType = t
	}
	e.hasChanges = true
}
