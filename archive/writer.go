package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/holdall-io/holdall/compress"
	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/format"
	"github.com/holdall-io/holdall/internal/identity"
	"github.com/holdall-io/holdall/registry"
)

// Writer encodes values into a new archive. Create one with Create or
// NewWriter, add roots with Put, then call Seal exactly once to write the
// index and finalize the container.
//
// Each value is walked in a single pass: leaves resolve to codecs from the
// registry snapshot, containers recurse into child nodes, and shared
// containers are detected by identity so their data is stored once. Payload
// entries stream into the container as each Put commits; only the node
// descriptors stay in memory until Seal.
//
// A Writer is single-use and not safe for concurrent use.
//
// Example usage:
//
//	w, err := archive.Create("run.hold", archive.WithCompression(format.CompressionZstd))
//	if err != nil {
//	    return err
//	}
//	defer w.Discard()
//
//	if err := w.Put("params", params); err != nil {
//	    return err
//	}
//	if err := w.Put("losses", losses); err != nil {
//	    return err
//	}
//
//	return w.Seal()
type Writer struct {
	cfg     *config
	codec   compress.Codec
	session *registry.Session
	tracker *identity.Tracker

	zw      *zip.Writer
	file    *os.File // set by Create, nil for NewWriter
	tmpPath string
	path    string
	created time.Time

	nodes    map[string]*Node
	roots    []string       // raw root keys in Put order
	refPaths map[int]string // tracker id to canonical path
	objTag   string

	payloadCount int
	payloadBytes int64
	storedBytes  int64

	sealed    bool
	discarded bool
}

// NewWriter starts an archive that writes into w. The caller owns w: Seal
// finalizes the container structure but does not close the sink.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return newWriter(cfg, w, nil, "", "")
}

// Create starts an archive at path. The container is assembled in a
// temporary sibling file and moved into place by Seal, so a crash or a
// Discard never leaves a half-written archive at the target path. Without
// WithClobber, Create refuses to replace an existing file.
func Create(path string, opts ...Option) (*Writer, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if !cfg.clobber {
		if _, err := os.Lstat(path); err == nil {
			return nil, fmt.Errorf("archive %q already exists: %w", path, os.ErrExist)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, err
	}
	w, err := newWriter(cfg, f, f, tmpPath, path)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)

		return nil, err
	}

	return w, nil
}

func newWriter(cfg *config, sink io.Writer, file *os.File, tmpPath, path string) (*Writer, error) {
	codec, err := compress.CreateCodec(cfg.compression, "payload")
	if err != nil {
		return nil, err
	}

	return &Writer{
		cfg:      cfg,
		codec:    codec,
		session:  cfg.registry.Snapshot(),
		tracker:  identity.NewTracker(),
		zw:       zip.NewWriter(sink),
		file:     file,
		tmpPath:  tmpPath,
		path:     path,
		created:  time.Now().UTC(),
		nodes:    make(map[string]*Node),
		refPaths: make(map[int]string),
	}, nil
}

// Put encodes value under the given root key. Keys are raw names: a key
// containing dots addresses a single root whose index path is the escaped
// form (see JoinPath).
//
// A failed Put stages nothing. The writer stays usable and the same key can
// be retried, for example after substituting a fallback representation for
// an unsupported value.
//
// Returns:
//   - errs.ErrInvalidPath: empty key
//   - errs.ErrReservedName: key collides with an archive bookkeeping name
//   - errs.ErrDuplicatePath: key was already written in this session
//   - errs.ErrUnsupportedType: value contains something no codec covers and
//     the structural rules cannot break down
//   - errs.ErrAlreadySealed, errs.ErrClosed: writer lifecycle violations
func (w *Writer) Put(key string, value any) error {
	if err := w.usable(); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	if key == "" {
		return fmt.Errorf("%w: empty root key", errs.ErrInvalidPath)
	}
	if key == IndexName {
		return fmt.Errorf("%w: %q", errs.ErrReservedName, key)
	}
	root := escapeSegment(key)
	if _, ok := w.nodes[root]; ok {
		return fmt.Errorf("%w: %q", errs.ErrDuplicatePath, key)
	}

	st := newPutState()
	if err := w.encode(st, root, reflect.ValueOf(value)); err != nil {
		return err
	}

	return w.commit(st, key)
}

// SetObjectTag marks the archive as the persisted state of a single object.
// The tag is recorded in the index self descriptor, where Load uses it to
// pick or verify the type to restore into.
func (w *Writer) SetObjectTag(tag string) error {
	if err := w.usable(); err != nil {
		return err
	}
	w.objTag = tag

	return nil
}

// Seal prunes the reference table, writes the archive index, and finalizes
// the container. File-backed writers sync and move the archive into place.
// No writes are accepted afterwards; sealing twice is an error.
func (w *Writer) Seal() error {
	if err := w.usable(); err != nil {
		return fmt.Errorf("seal: %w", err)
	}

	refs := w.pruneRefs()
	idx := &Index{
		Format:  format.IndexVersion,
		Created: w.created.Format(time.RFC3339),
		Writer:  "holdall/" + format.LibraryVersion,
		Self:    w.selfNode(),
		Nodes:   w.nodes,
		Refs:    refs,
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := w.writeEntry(IndexName, data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("finalize container: %w", err)
	}

	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			w.file.Close()
			return err
		}
		if err := w.file.Close(); err != nil {
			return err
		}
		if err := os.Rename(w.tmpPath, w.path); err != nil {
			return err
		}
	}
	w.sealed = true

	w.cfg.logger.Debug("sealed archive",
		"roots", len(w.roots),
		"nodes", len(w.nodes),
		"refs", len(refs),
		"payload_entries", w.payloadCount,
		"payload_bytes", w.payloadBytes,
		"stored_bytes", w.storedBytes,
	)

	return nil
}

// Discard abandons the archive. File-backed writers remove their temporary
// file, so nothing appears at the target path. Discard after Seal is a
// no-op, which makes "defer w.Discard()" safe cleanup for every exit path.
func (w *Writer) Discard() error {
	if w.sealed || w.discarded {
		return nil
	}
	w.discarded = true

	err := w.zw.Close()
	if w.file != nil {
		if cerr := w.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if rerr := os.Remove(w.tmpPath); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) && err == nil {
			err = rerr
		}
	}

	return err
}

func (w *Writer) usable() error {
	if w.discarded {
		return errs.ErrClosed
	}
	if w.sealed {
		return errs.ErrAlreadySealed
	}

	return nil
}

// putState stages one Put so a failed encode leaves no trace in the writer
// or the container.
type putState struct {
	nodes    map[string]*Node
	payloads []stagedPayload
	refs     map[int]string // ids first claimed during this Put
}

type stagedPayload struct {
	path     string
	name     string
	data     []byte // compressed form, ready to store
	original int
}

func newPutState() *putState {
	return &putState{
		nodes: make(map[string]*Node),
		refs:  make(map[int]string),
	}
}

func (st *putState) add(path string, node *Node) {
	st.nodes[path] = node
}

// commit merges a successfully encoded root into the writer and streams its
// staged payloads into the container.
func (w *Writer) commit(st *putState, key string) error {
	for _, p := range st.payloads {
		if err := w.writeEntry(p.name, p.data); err != nil {
			return fmt.Errorf("stage payload for %q: %w", p.path, err)
		}
		w.payloadCount++
		w.payloadBytes += int64(p.original)
		w.storedBytes += int64(len(p.data))

		stats := compress.Stats{
			Algorithm:      w.cfg.compression,
			OriginalSize:   int64(p.original),
			CompressedSize: int64(len(p.data)),
		}
		w.cfg.logger.Debug("staged payload entry",
			"path", p.path,
			"entry", p.name,
			"original_bytes", stats.OriginalSize,
			"stored_bytes", stats.CompressedSize,
			"space_savings_pct", stats.SpaceSavings(),
		)
	}

	maps.Copy(w.nodes, st.nodes)
	maps.Copy(w.refPaths, st.refs)
	w.roots = append(w.roots, key)

	return nil
}

func (w *Writer) writeEntry(name string, data []byte) error {
	// Store, not Deflate: payloads carry their own compression and the
	// index must stay readable by any unzip tool.
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: w.created,
	}
	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)

	return err
}

var (
	jsonNull   = json.RawMessage("null")
	stringType = reflect.TypeFor[string]()
)

// kindFallback maps basic kinds to the builtin type whose codec serves
// unregistered named types (type Celsius float64, type ID string). The
// value round-trips as its underlying type.
var kindFallback = map[reflect.Kind]reflect.Type{
	reflect.Bool:       reflect.TypeFor[bool](),
	reflect.Int:        reflect.TypeFor[int](),
	reflect.Int8:       reflect.TypeFor[int8](),
	reflect.Int16:      reflect.TypeFor[int16](),
	reflect.Int32:      reflect.TypeFor[int32](),
	reflect.Int64:      reflect.TypeFor[int64](),
	reflect.Uint:       reflect.TypeFor[uint](),
	reflect.Uint8:      reflect.TypeFor[uint8](),
	reflect.Uint16:     reflect.TypeFor[uint16](),
	reflect.Uint32:     reflect.TypeFor[uint32](),
	reflect.Uint64:     reflect.TypeFor[uint64](),
	reflect.Float32:    reflect.TypeFor[float32](),
	reflect.Float64:    reflect.TypeFor[float64](),
	reflect.Complex64:  reflect.TypeFor[complex64](),
	reflect.Complex128: reflect.TypeFor[complex128](),
	reflect.String:     stringType,
}

func nilNode(refID int) *Node {
	return &Node{Value: jsonNull, Ref: refID}
}

func (w *Writer) encode(st *putState, path string, rv reflect.Value) error {
	return w.encodeValue(st, path, rv, 0)
}

// encodeValue writes the node for one value and recurses into its children.
// A non-zero refID means identity was already claimed for this path by an
// enclosing pointer, so the value is not observed again; whatever node it
// produces carries that id.
func (w *Writer) encodeValue(st *putState, path string, rv reflect.Value, refID int) error {
	if !rv.IsValid() {
		st.add(path, nilNode(refID))
		return nil
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			st.add(path, nilNode(refID))
			return nil
		}
		rv = rv.Elem()
	}

	if refID == 0 && w.cfg.aliasing {
		if id, first := w.tracker.Observe(rv); id != 0 {
			canonical, known := st.refs[id]
			if !known {
				canonical, known = w.refPaths[id]
			}
			if !first && known && canonical != "" {
				st.add(path, &Node{Ref: id})
				return nil
			}
			// First sighting, or the earlier sighting was rolled back by
			// a failed Put. This path becomes the canonical one.
			st.refs[id] = path
			refID = id
		}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			st.add(path, nilNode(refID))
			return nil
		}
	}

	codec, exact := w.session.CodecFor(rv.Type())

	// Long strings spill to their own payload entry. Named string types
	// with a custom codec keep their codec regardless of length.
	if rv.Kind() == reflect.String && rv.Len() > w.cfg.inlineLimit && (!exact || rv.Type() == stringType) {
		if spill, ok := w.session.CodecByTag(registry.TextTag); ok {
			return w.encodeLeaf(st, path, spill, rv.String(), refID)
		}
	}

	if exact {
		return w.encodeLeaf(st, path, codec, rv.Interface(), refID)
	}

	// Named basic types fall back to the codec of their underlying kind.
	if base, ok := kindFallback[rv.Kind()]; ok {
		if codec, ok := w.session.CodecFor(base); ok {
			return w.encodeLeaf(st, path, codec, rv.Convert(base).Interface(), refID)
		}
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return w.encodeSequence(st, path, rv, refID)
	case reflect.Map:
		return w.encodeMapping(st, path, rv, refID)
	case reflect.Struct:
		return w.encodeObject(st, path, rv, refID)
	case reflect.Pointer:
		return w.encodeValue(st, path, rv.Elem(), refID)
	default:
		return fmt.Errorf("%w: %s at %q", errs.ErrUnsupportedType, rv.Type(), path)
	}
}

func (w *Writer) encodeLeaf(st *putState, path string, codec registry.Codec, v any, refID int) error {
	enc, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}

	node := &Node{Type: codec.Tag(), Value: enc.Inline, Meta: enc.Meta, Ref: refID}
	if len(enc.Payload) > 0 {
		name, err := entryName(path, codec.Tag())
		if err != nil {
			return err
		}
		data, err := w.codec.Compress(enc.Payload)
		if err != nil {
			return fmt.Errorf("compress %q: %w", path, err)
		}
		node.Entry = name
		node.Compression = w.cfg.compression
		st.payloads = append(st.payloads, stagedPayload{
			path:     path,
			name:     name,
			data:     data,
			original: len(enc.Payload),
		})
	}
	st.add(path, node)

	return nil
}

func (w *Writer) encodeSequence(st *putState, path string, rv reflect.Value, refID int) error {
	n := rv.Len()
	st.add(path, &Node{
		Kind: format.KindSequence,
		Len:  n,
		Ref:  refID,
		Go:   rv.Type().String(),
	})
	for i := range n {
		if err := w.encode(st, childPath(path, strconv.Itoa(i)), rv.Index(i)); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) encodeMapping(st *putState, path string, rv reflect.Value, refID int) error {
	keys, elems, err := mappingEntries(path, rv)
	if err != nil {
		return err
	}
	st.add(path, &Node{
		Kind: format.KindMapping,
		Keys: keys,
		Ref:  refID,
		Go:   rv.Type().String(),
	})
	for i, key := range keys {
		if err := w.encode(st, childPath(path, key), elems[i]); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) encodeObject(st *putState, path string, rv reflect.Value, refID int) error {
	state, err := registry.StateOf(rv.Interface())
	if err != nil {
		return fmt.Errorf("object at %q: %w", path, err)
	}

	keys := slices.Sorted(maps.Keys(state))
	st.add(path, &Node{
		Type: registry.ObjectTag(rv.Type()),
		Kind: format.KindObject,
		Keys: keys,
		Ref:  refID,
	})
	for _, key := range keys {
		if err := w.encode(st, childPath(path, key), reflect.ValueOf(state[key])); err != nil {
			return err
		}
	}

	return nil
}

// mappingEntries stringifies and sorts the keys of a map value. Only string
// and integer keys have a faithful string form; anything else fails the
// encode of the whole map.
func mappingEntries(path string, rv reflect.Value) ([]string, []reflect.Value, error) {
	type entry struct {
		key  string
		elem reflect.Value
	}

	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() == reflect.Interface && !k.IsNil() {
			k = k.Elem()
		}

		var key string
		switch k.Kind() {
		case reflect.String:
			key = k.String()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			key = strconv.FormatInt(k.Int(), 10)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			key = strconv.FormatUint(k.Uint(), 10)
		default:
			return nil, nil, fmt.Errorf("%w: map key type %s at %q", errs.ErrUnsupportedType, k.Type(), path)
		}
		entries = append(entries, entry{key: key, elem: iter.Value()})
	}

	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.key, b.key) })

	keys := make([]string, len(entries))
	elems := make([]reflect.Value, len(entries))
	for i, e := range entries {
		if i > 0 && keys[i-1] == e.key {
			return nil, nil, fmt.Errorf("%w: map keys collide on %q at %q", errs.ErrDuplicatePath, e.key, path)
		}
		keys[i] = e.key
		elems[i] = e.elem
	}

	return keys, elems, nil
}

// pruneRefs drops reference ids no alias node ever used and renumbers the
// survivors densely from 1 in their original assignment order. Canonical
// nodes whose id was pruned lose their ref marker.
func (w *Writer) pruneRefs() map[string]string {
	used := make(map[int]bool)
	for _, node := range w.nodes {
		if node.IsAlias() {
			used[node.Ref] = true
		}
	}

	surviving := slices.Sorted(maps.Keys(used))
	remap := make(map[int]int, len(surviving))
	refs := make(map[string]string, len(surviving))
	for i, id := range surviving {
		remap[id] = i + 1
		refs[strconv.Itoa(i+1)] = w.refPaths[id]
	}

	for _, node := range w.nodes {
		if node.Ref == 0 {
			continue
		}
		if next, ok := remap[node.Ref]; ok {
			node.Ref = next
		} else {
			node.Ref = 0
		}
	}

	return refs
}

func (w *Writer) selfNode() *Node {
	self := &Node{Kind: format.KindMapping, Keys: slices.Clone(w.roots)}
	if w.objTag != "" {
		self.Kind = format.KindObject
		self.Type = w.objTag
	}

	return self
}
