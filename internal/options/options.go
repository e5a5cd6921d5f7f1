// Package options implements the generic functional option mechanism used by
// the configurable holdall types. Public packages wrap these helpers in
// concrete option constructors (archive.WithCompression, archive.WithLogger)
// so the generics stay out of user-facing signatures.
package options

// Option configures a target of type T. Options are applied in order, so
// later options win when they touch the same setting.
type Option[T any] interface {
	apply(T) error
}

// Func adapts a plain function into an Option.
type Func[T any] func(T) error

func (f Func[T]) apply(target T) error {
	return f(target)
}

// New wraps fn as an option that may fail validation.
func New[T any](fn func(T) error) Func[T] {
	return Func[T](fn)
}

// NoError wraps a function that cannot fail.
func NoError[T any](fn func(T)) Func[T] {
	return func(target T) error {
		fn(target)
		return nil
	}
}

// Apply applies opts to target in order and stops at the first error.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}
