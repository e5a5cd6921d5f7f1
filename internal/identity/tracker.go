// Package identity tracks value identity during an encode session. The first
// time a container is observed it receives a reference id; observing the same
// container again yields the same id, which lets the writer store the data
// once and record every later occurrence as an alias. Identity means the same
// underlying object, never structural equality: two equal but distinct maps
// get two ids.
package identity

import "reflect"

// key identifies a tracked value. The type keeps two different objects that
// happen to share an address apart (a struct and its first field, a slice and
// its backing array), and the length keeps overlapping subslices apart.
type key struct {
	typ    reflect.Type
	ptr    uintptr
	length int
}

// Tracker assigns reference ids to observed containers. Ids start at 1 and
// grow in observation order, so a walk with a deterministic visit order
// produces deterministic ids.
//
// The recorded addresses stay valid for the life of a session because the
// encode root keeps every observed value reachable. A Tracker must not
// outlive the walk it was used for.
type Tracker struct {
	ids     map[key]int
	aliased map[int]bool
	next    int
}

// NewTracker creates an empty identity tracker.
func NewTracker() *Tracker {
	return &Tracker{
		ids:     make(map[key]int),
		aliased: make(map[int]bool),
		next:    1,
	}
}

// Trackable reports whether v carries identity worth tracking: non-nil
// pointers, non-nil maps, and non-empty slices. Scalars, strings, and
// by-value structs are copied on assignment and therefore have no identity;
// empty containers are cheaper to duplicate than to alias.
func Trackable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		return !v.IsNil()
	case reflect.Slice:
		return !v.IsNil() && v.Len() > 0
	default:
		return false
	}
}

// Observe records one encounter of v. For the first encounter of a trackable
// value it assigns a fresh id and returns first=true; later encounters return
// the same id with first=false. Untrackable values return id 0.
func (t *Tracker) Observe(v reflect.Value) (int, bool) {
	if !Trackable(v) {
		return 0, false
	}

	k := key{typ: v.Type(), ptr: v.Pointer()}
	if v.Kind() == reflect.Slice {
		k.length = v.Len()
	}

	if id, exists := t.ids[k]; exists {
		t.aliased[id] = true
		return id, false
	}

	id := t.next
	t.next++
	t.ids[k] = id

	return id, true
}

// Aliased reports whether the id was observed more than once. The writer
// prunes ids that never aliased before the index is written.
func (t *Tracker) Aliased(id int) bool {
	return t.aliased[id]
}

// Count returns the number of tracked values.
func (t *Tracker) Count() int {
	return len(t.ids)
}

// Reset clears all tracked identities so the tracker can serve a new walk.
func (t *Tracker) Reset() {
	clear(t.ids)
	clear(t.aliased)
	t.next = 1
}
