package registry

import (
	"fmt"
	"math"
	"reflect"

	"github.com/holdall-io/holdall/errs"
)

// Externalizable is the state protocol for custom objects. Types that
// implement it control exactly which fields persist and how they come back;
// everything else falls back to reflection over exported struct fields.
//
// ExportState returns the object's persistable state as a field map; the
// engine stores each entry as a child node, so values may be anything the
// archive can encode, including other custom objects. ImportState receives
// the decoded map and must leave the object fully initialized.
type Externalizable interface {
	ExportState() (map[string]any, error)
	ImportState(state map[string]any) error
}

// ObjectTag derives the stable type tag for a struct type: the full import
// path plus the type name, e.g. "github.com/acme/app.Model". Pointer types
// tag as their element type, so T and *T share one tag.
func ObjectTag(rt reflect.Type) string {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.PkgPath() != "" && rt.Name() != "" {
		return rt.PkgPath() + "." + rt.Name()
	}

	return rt.String()
}

// StateOf extracts an object's persistable state: ExportState when the value
// implements Externalizable, the exported struct fields otherwise. A struct
// value whose Externalizable methods have pointer receivers is copied so the
// protocol still applies.
func StateOf(v any) (map[string]any, error) {
	if ext, ok := v.(Externalizable); ok {
		return ext.ExportState()
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Struct {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		if ext, ok := p.Interface().(Externalizable); ok {
			return ext.ExportState()
		}
	}

	return ExportStruct(v)
}

// RestoreInto fills target from a decoded state map: ImportState when the
// target implements Externalizable, exported-field assignment otherwise.
// The target must be a pointer for the restored state to be visible.
func RestoreInto(target any, state map[string]any) error {
	if ext, ok := target.(Externalizable); ok {
		return ext.ImportState(state)
	}

	return ImportStruct(target, state)
}

// ExportStruct is the reflection fallback of the state protocol: it returns
// the exported fields of a struct (or pointer to struct) as a field map.
// Unexported fields and fields tagged `holdall:"-"` are skipped; no methods
// are called.
func ExportStruct(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil object", errs.ErrUnsupportedType)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: object state requires a struct, got %s", errs.ErrUnsupportedType, rv.Kind())
	}

	rt := rv.Type()
	state := make(map[string]any, rt.NumField())
	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() || field.Tag.Get("holdall") == "-" {
			continue
		}
		state[field.Name] = rv.Field(i).Interface()
	}

	return state, nil
}

// ImportStruct is the inverse of ExportStruct: it assigns state entries to
// the exported fields of the struct pointed to by target. Fields absent from
// the state keep their current value; decoded canonical forms ([]any,
// map[string]any, widened numbers) are converted to the field's type where
// the conversion is lossless.
func ImportStruct(target any, state map[string]any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: import target must be a non-nil struct pointer, got %T", errs.ErrTypeMismatch, target)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("%w: import target must point to a struct, got %T", errs.ErrTypeMismatch, target)
	}

	return importStructValue(elem, state)
}

func importStructValue(rv reflect.Value, state map[string]any) error {
	rt := rv.Type()
	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() || field.Tag.Get("holdall") == "-" {
			continue
		}
		val, ok := state[field.Name]
		if !ok {
			continue
		}
		if err := assignValue(rv.Field(i), val); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}

	return nil
}

// assignValue sets dst to src, converting between the canonical decoded
// forms and the destination type. Conversions are strict: numeric overflow
// and non-integral floats into integer fields are errors, not truncations.
func assignValue(dst reflect.Value, src any) error {
	if src == nil {
		dst.SetZero()
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Pointer:
		p := reflect.New(dst.Type().Elem())
		if err := assignValue(p.Elem(), src); err != nil {
			return err
		}
		dst.Set(p)

		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return assignInt(dst, sv)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return assignUint(dst, sv)

	case reflect.Float32, reflect.Float64:
		return assignFloat(dst, sv)

	case reflect.Slice:
		if sv.Kind() != reflect.Slice {
			break
		}
		n := sv.Len()
		out := reflect.MakeSlice(dst.Type(), n, n)
		for i := range n {
			if err := assignValue(out.Index(i), sv.Index(i).Interface()); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		dst.Set(out)

		return nil

	case reflect.Array:
		if sv.Kind() != reflect.Slice || sv.Len() != dst.Len() {
			break
		}
		for i := range dst.Len() {
			if err := assignValue(dst.Index(i), sv.Index(i).Interface()); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}

		return nil

	case reflect.Map:
		if sv.Kind() != reflect.Map || dst.Type().Key().Kind() != reflect.String {
			break
		}
		out := reflect.MakeMapWithSize(dst.Type(), sv.Len())
		iter := sv.MapRange()
		for iter.Next() {
			key := iter.Key()
			if key.Kind() != reflect.String {
				return fmt.Errorf("%w: map key %v is not a string", errs.ErrTypeMismatch, key)
			}
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := assignValue(elem, iter.Value().Interface()); err != nil {
				return fmt.Errorf("key %q: %w", key.String(), err)
			}
			out.SetMapIndex(key.Convert(dst.Type().Key()), elem)
		}
		dst.Set(out)

		return nil

	case reflect.Struct:
		if m, ok := src.(map[string]any); ok {
			return importStructValue(dst, m)
		}
	}

	return fmt.Errorf("%w: cannot assign %T to %s", errs.ErrTypeMismatch, src, dst.Type())
}

func assignInt(dst reflect.Value, sv reflect.Value) error {
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := sv.Int()
		if dst.OverflowInt(n) {
			return fmt.Errorf("%w: %d overflows %s", errs.ErrTypeMismatch, n, dst.Type())
		}
		dst.SetInt(n)

		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := sv.Uint()
		if u > math.MaxInt64 || dst.OverflowInt(int64(u)) {
			return fmt.Errorf("%w: %d overflows %s", errs.ErrTypeMismatch, u, dst.Type())
		}
		dst.SetInt(int64(u))

		return nil

	case reflect.Float32, reflect.Float64:
		f := sv.Float()
		if math.Trunc(f) != f || f < math.MinInt64 || f >= math.MaxInt64 {
			return fmt.Errorf("%w: %v is not an integral value for %s", errs.ErrTypeMismatch, f, dst.Type())
		}
		n := int64(f)
		if dst.OverflowInt(n) {
			return fmt.Errorf("%w: %d overflows %s", errs.ErrTypeMismatch, n, dst.Type())
		}
		dst.SetInt(n)

		return nil
	}

	return fmt.Errorf("%w: cannot assign %s to %s", errs.ErrTypeMismatch, sv.Type(), dst.Type())
}

func assignUint(dst reflect.Value, sv reflect.Value) error {
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := sv.Int()
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("%w: %d overflows %s", errs.ErrTypeMismatch, n, dst.Type())
		}
		dst.SetUint(uint64(n))

		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := sv.Uint()
		if dst.OverflowUint(u) {
			return fmt.Errorf("%w: %d overflows %s", errs.ErrTypeMismatch, u, dst.Type())
		}
		dst.SetUint(u)

		return nil

	case reflect.Float32, reflect.Float64:
		f := sv.Float()
		if math.Trunc(f) != f || f < 0 || f >= math.MaxUint64 {
			return fmt.Errorf("%w: %v is not an integral value for %s", errs.ErrTypeMismatch, f, dst.Type())
		}
		u := uint64(f)
		if dst.OverflowUint(u) {
			return fmt.Errorf("%w: %d overflows %s", errs.ErrTypeMismatch, u, dst.Type())
		}
		dst.SetUint(u)

		return nil
	}

	return fmt.Errorf("%w: cannot assign %s to %s", errs.ErrTypeMismatch, sv.Type(), dst.Type())
}

func assignFloat(dst reflect.Value, sv reflect.Value) error {
	var f float64
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f = float64(sv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f = float64(sv.Uint())
	case reflect.Float32, reflect.Float64:
		f = sv.Float()
	default:
		return fmt.Errorf("%w: cannot assign %s to %s", errs.ErrTypeMismatch, sv.Type(), dst.Type())
	}

	if dst.OverflowFloat(f) {
		return fmt.Errorf("%w: %v overflows %s", errs.ErrTypeMismatch, f, dst.Type())
	}
	dst.SetFloat(f)

	return nil
}
