package archive

import (
	"fmt"
	"reflect"

	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/registry"
)

// RestoreInto materializes every root of the archive and assigns the
// resulting state to target through the object protocol: ImportState when
// target implements registry.Externalizable, exported-field assignment
// otherwise. Target must be a pointer.
//
// Roots the target has no use for are carried in the state map and simply
// ignored by the field fallback, so a type can drop fields and still read
// archives written before the change.
func (r *Reader) RestoreInto(target any) error {
	if r.closed {
		return errs.ErrClosed
	}

	state, err := r.rootState()
	if err != nil {
		return err
	}

	return registry.RestoreInto(target, state)
}

// Restore rebuilds the object this archive was sealed from: it allocates
// the struct type registered for the archive's object tag and restores the
// roots into it, returning a pointer to the populated instance.
//
// Returns:
//   - errs.ErrTypeMismatch: the archive records no object tag (it was
//     written with plain Puts, not as an object's state)
//   - errs.ErrUnknownTypeTag: the tag has no registered type in the
//     reader's registry
func (r *Reader) Restore() (any, error) {
	if r.closed {
		return nil, errs.ErrClosed
	}

	self := r.index.Self
	if self == nil || self.Type == "" {
		return nil, fmt.Errorf("%w: archive records no object tag", errs.ErrTypeMismatch)
	}
	rt, ok := r.session.ObjectType(self.Type)
	if !ok {
		return nil, fmt.Errorf("%w: object tag %q (register the type before restoring)",
			errs.ErrUnknownTypeTag, self.Type)
	}

	target := reflect.New(rt).Interface()
	if err := r.RestoreInto(target); err != nil {
		return nil, err
	}

	return target, nil
}

// rootState materializes all roots into a raw-key state map.
func (r *Reader) rootState() (map[string]any, error) {
	keys := r.Keys()
	state := make(map[string]any, len(keys))
	for _, key := range keys {
		v, err := r.Get(escapeSegment(key))
		if err != nil {
			return nil, err
		}
		state[key] = v
	}

	return state, nil
}
