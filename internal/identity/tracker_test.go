package identity

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()

	require.NotNil(t, tracker)
	require.Equal(t, 0, tracker.Count())
}

func TestTracker_Observe_SameContainer(t *testing.T) {
	tracker := NewTracker()
	shared := map[string]int{"a": 1}

	id, first := tracker.Observe(reflect.ValueOf(shared))
	require.True(t, first)
	require.Equal(t, 1, id)
	require.False(t, tracker.Aliased(id))

	again, first := tracker.Observe(reflect.ValueOf(shared))
	require.False(t, first)
	require.Equal(t, id, again)
	require.True(t, tracker.Aliased(id))
	require.Equal(t, 1, tracker.Count())
}

func TestTracker_Observe_EqualButDistinct(t *testing.T) {
	tracker := NewTracker()

	// Identity, not equality: two equal maps keep separate ids.
	first, _ := tracker.Observe(reflect.ValueOf(map[string]int{"a": 1}))
	second, _ := tracker.Observe(reflect.ValueOf(map[string]int{"a": 1}))

	require.NotEqual(t, first, second)
	require.Equal(t, 2, tracker.Count())
	require.False(t, tracker.Aliased(first))
	require.False(t, tracker.Aliased(second))
}

func TestTracker_Observe_Slices(t *testing.T) {
	tracker := NewTracker()
	backing := []int{1, 2, 3, 4}

	id, first := tracker.Observe(reflect.ValueOf(backing))
	require.True(t, first)

	// The same slice header is the same object.
	same, first := tracker.Observe(reflect.ValueOf(backing))
	require.False(t, first)
	require.Equal(t, id, same)

	// A subslice shares the data pointer but is a different object.
	sub, first := tracker.Observe(reflect.ValueOf(backing[:2]))
	require.True(t, first)
	require.NotEqual(t, id, sub)
}

func TestTracker_Observe_Pointers(t *testing.T) {
	type node struct{ Value int }

	tracker := NewTracker()
	n := &node{Value: 7}

	id, first := tracker.Observe(reflect.ValueOf(n))
	require.True(t, first)

	same, first := tracker.Observe(reflect.ValueOf(n))
	require.False(t, first)
	require.Equal(t, id, same)

	other, first := tracker.Observe(reflect.ValueOf(&node{Value: 7}))
	require.True(t, first)
	require.NotEqual(t, id, other)
}

func TestTrackable_Untracked(t *testing.T) {
	type plain struct{ A int }

	var nilMap map[string]int
	var nilPtr *plain
	var nilSlice []int

	for _, v := range []any{42, "text", 1.5, true, plain{A: 1}, nilMap, nilPtr, nilSlice, []int{}} {
		require.False(t, Trackable(reflect.ValueOf(v)), "%T should not be trackable", v)
	}

	tracker := NewTracker()
	id, first := tracker.Observe(reflect.ValueOf(42))
	require.Zero(t, id)
	require.False(t, first)
	require.Equal(t, 0, tracker.Count())
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker()
	shared := []string{"x"}

	id, _ := tracker.Observe(reflect.ValueOf(shared))
	tracker.Observe(reflect.ValueOf(shared))
	require.True(t, tracker.Aliased(id))

	tracker.Reset()
	require.Equal(t, 0, tracker.Count())
	require.False(t, tracker.Aliased(id))

	fresh, first := tracker.Observe(reflect.ValueOf(shared))
	require.True(t, first)
	require.Equal(t, 1, fresh, "ids restart after Reset")
}
