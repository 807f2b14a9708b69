package adapter

import "github.com/danmuck/isarlink/internal/trackable"

// Change is one entity as seen by a consumer poll.
type Change[T any] struct {
	ID     trackable.ID
	IsarID int32
	Data   T
}

// Changes groups pending transitions by update type.
type Changes[T any] struct {
	Added   []Change[T]
	Updated []Change[T]
	Removed []trackable.ID
}

func (c Changes[T]) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// pollChanges acknowledges every dirty entity of type T and purges the ones
// reported as removed. A removed entity stays queryable until this call.
func pollChanges[T any](reg *trackable.Registry) Changes[T] {
	var out Changes[T]
	for _, e := range trackable.AllOfType[*trackable.Tracked[T]](reg) {
		data, ut, changed := e.Poll()
		if !changed {
			continue
		}
		c := Change[T]{ID: e.ID(), IsarID: e.IsarID(), Data: data}
		switch ut {
		case trackable.UpdateAdded:
			out.Added = append(out.Added, c)
		case trackable.UpdateUpdated:
			out.Updated = append(out.Updated, c)
		case trackable.UpdateRemoved:
			out.Removed = append(out.Removed, e.ID())
		}
	}
	for _, id := range out.Removed {
		reg.RemoveByID(id)
	}
	return out
}

// markAllRemoved moves every live entity of type T to Removed.
func markAllRemoved[T any](reg *trackable.Registry) int {
	n := 0
	for _, e := range trackable.AllOfType[*trackable.Tracked[T]](reg) {
		if e.MarkRemoved() {
			n++
		}
	}
	return n
}
