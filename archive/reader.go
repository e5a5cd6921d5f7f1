package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"reflect"
	"slices"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/holdall-io/holdall/compress"
	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/format"
	"github.com/holdall-io/holdall/registry"
)

// Reader materializes values out of a sealed archive. Opening parses and
// validates only the index; payload entries are read when a Get first
// touches them, so pulling one root out of a large archive costs only that
// root's entries.
//
// Shared containers materialize once per Reader: every path that aliases
// the same canonical node returns the same instance for the life of the
// Reader, which preserves both sharing and cycles.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	cfg     *config
	entries map[string]*zip.File
	index   *Index
	session *registry.Session

	cache      map[string]any  // canonical path to materialized instance
	refTargets map[string]bool // paths some reference id resolves to
	closer     func() error
	closed     bool
}

// NewReader opens an archive from a random-access source. The caller keeps
// ownership of src; Close on the returned Reader does not release it.
func NewReader(src io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return newReader(cfg, src, size, nil)
}

// Open opens the archive file at path. Close releases the file.
func Open(path string, opts ...Option) (*Reader, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := newReader(cfg, f, st.Size(), f.Close)
	if err != nil {
		f.Close()
		return nil, err
	}

	return r, nil
}

// OpenSource opens an archive from a source whose ownership passes to the
// Reader: Close calls release, and so does a failed open. Storage adapters
// plug in here:
//
//	src, release, err := store.OpenRead(id)
//	if err != nil {
//	    return err
//	}
//	rd, err := archive.OpenSource(src, src.Size(), release)
func OpenSource(src io.ReaderAt, size int64, release func() error, opts ...Option) (*Reader, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		if release != nil {
			release()
		}
		return nil, err
	}

	r, err := newReader(cfg, src, size, release)
	if err != nil {
		if release != nil {
			release()
		}
		return nil, err
	}

	return r, nil
}

func newReader(cfg *config, src io.ReaderAt, size int64, closer func() error) (*Reader, error) {
	zr, err := zip.NewReader(src, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptArchive, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	present := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
		present[f.Name] = true
	}

	idxFile, ok := entries[IndexName]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s entry", errs.ErrCorruptArchive, IndexName)
	}
	data, err := readEntry(idxFile)
	if err != nil {
		return nil, err
	}
	idx := &Index{}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("%w: unparsable index: %v", errs.ErrCorruptArchive, err)
	}
	if err := idx.validate(present); err != nil {
		return nil, err
	}

	refTargets := make(map[string]bool, len(idx.Refs))
	for _, path := range idx.Refs {
		refTargets[path] = true
	}

	return &Reader{
		cfg:        cfg,
		entries:    entries,
		index:      idx,
		session:    cfg.registry.Snapshot(),
		cache:      make(map[string]any),
		refTargets: refTargets,
		closer:     closer,
	}, nil
}

// Get materializes the value at an index path. Only the payload entries
// under the requested subtree are read.
//
// Scalars come back as the type their codec produces, structural sequences
// as []any, structural mappings as map[string]any, and object nodes as a
// pointer to their registered struct type.
//
// Returns:
//   - errs.ErrPathNotFound: path absent from the index
//   - errs.ErrUnknownTypeTag: a node's tag has no codec or object type in
//     the reader's registry
//   - errs.ErrCorruptArchive: damaged payload or inconsistent descriptors
//   - errs.ErrClosed: reader was closed
func (r *Reader) Get(path string) (any, error) {
	if r.closed {
		return nil, errs.ErrClosed
	}
	node, ok := r.index.Nodes[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrPathNotFound, path)
	}

	return r.decodeNode(path, node)
}

// GetMany materializes several paths in one call. Failed paths do not abort
// the rest: the returned map holds every success and the error joins one
// error per failure, so callers can salvage what a damaged or partially
// readable archive still offers.
func (r *Reader) GetMany(paths ...string) (map[string]any, error) {
	if r.closed {
		return nil, errs.ErrClosed
	}

	out := make(map[string]any, len(paths))
	var failures []error
	for _, path := range paths {
		v, err := r.Get(path)
		if err != nil {
			r.cfg.logger.Warn("path failed to materialize", "path", path, "error", err)
			failures = append(failures, err)
			continue
		}
		out[path] = v
	}

	return out, errors.Join(failures...)
}

// Keys returns the archive's root keys in the order they were Put. The
// names are raw: pass them through JoinPath to build Get paths.
func (r *Reader) Keys() []string {
	if r.index.Self != nil {
		return slices.Clone(r.index.Self.Keys)
	}

	var roots []string
	for path := range r.index.Nodes {
		if segs, err := SplitPath(path); err == nil && len(segs) == 1 {
			roots = append(roots, segs[0])
		}
	}
	slices.Sort(roots)

	return roots
}

// Contains reports whether an index path exists in the archive.
func (r *Reader) Contains(path string) bool {
	_, ok := r.index.Nodes[path]
	return ok
}

// Stat returns a copy of the node descriptor at path without materializing
// the value. Useful for inspecting what an archive holds: types, payload
// entries, container shapes.
func (r *Reader) Stat(path string) (Node, bool) {
	node, ok := r.index.Nodes[path]
	if !ok {
		return Node{}, false
	}

	n := *node
	n.Keys = slices.Clone(n.Keys)
	n.Value = slices.Clone(n.Value)
	n.Meta = slices.Clone(n.Meta)

	return n, true
}

// Self returns the archive's self descriptor: the ordered root keys plus,
// for object archives, the tag recorded by SetObjectTag.
func (r *Reader) Self() Node {
	if r.index.Self == nil {
		return Node{Kind: format.KindMapping, Keys: r.Keys()}
	}

	n := *r.index.Self
	n.Keys = slices.Clone(n.Keys)

	return n
}

// Created returns the sealing time recorded in the index, or the zero time
// when the recorded value does not parse.
func (r *Reader) Created() time.Time {
	t, err := time.Parse(time.RFC3339, r.index.Created)
	if err != nil {
		return time.Time{}
	}

	return t
}

// Tagged returns an iterator over the root keys whose node carries the
// given type tag, in Keys order.
func (r *Reader) Tagged(tag string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, key := range r.Keys() {
			node, ok := r.index.Nodes[escapeSegment(key)]
			if ok && node.Type == tag && !yield(key) {
				return
			}
		}
	}
}

// Frames iterates the root keys holding columnar frames.
func (r *Reader) Frames() iter.Seq[string] {
	return r.Tagged("frame")
}

// Close releases the underlying source for readers that own one and drops
// the materialization cache. Reads after Close fail with ErrClosed.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	clear(r.cache)

	if r.closer != nil {
		return r.closer()
	}

	return nil
}

func (r *Reader) decodeNode(path string, node *Node) (any, error) {
	if v, ok := r.cache[path]; ok {
		return v, nil
	}
	if node.IsAlias() {
		return r.resolveRef(path, node.Ref)
	}

	switch node.Kind {
	case format.KindSequence:
		return r.decodeSequence(path, node)
	case format.KindMapping:
		return r.decodeMapping(path, node)
	case format.KindObject:
		return r.decodeObject(path, node)
	}

	if node.Type != "" {
		return r.decodeLeaf(path, node)
	}

	// The remaining shape is the explicit nil node.
	return nil, nil
}

func (r *Reader) resolveRef(path string, ref int) (any, error) {
	canonical, ok := r.index.canonicalPath(ref)
	if !ok {
		return nil, fmt.Errorf("%w: node %q aliases unknown ref %d", errs.ErrCorruptArchive, path, ref)
	}
	node, ok := r.index.Nodes[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: ref %d points at missing path %q", errs.ErrCorruptArchive, ref, canonical)
	}

	return r.decodeNode(canonical, node)
}

// shared reports whether the value at path must materialize exactly once.
func (r *Reader) shared(path string, node *Node) bool {
	return node.Ref != 0 || r.refTargets[path]
}

// decodeSequence materializes a sequence node as []any. The slice is cached
// before its elements are filled so an element that aliases its own
// container resolves to the same slice.
func (r *Reader) decodeSequence(path string, node *Node) (any, error) {
	if node.Len < 0 {
		return nil, fmt.Errorf("%w: negative sequence length at %q", errs.ErrCorruptArchive, path)
	}
	// Each element owns a child node, so the index node count bounds any
	// genuine sequence length.
	if node.Len > len(r.index.Nodes) {
		return nil, fmt.Errorf("%w: sequence at %q claims %d elements, index has %d nodes",
			errs.ErrCorruptArchive, path, node.Len, len(r.index.Nodes))
	}

	seq := make([]any, node.Len)
	if r.shared(path, node) {
		r.cache[path] = seq
	}
	for i := range seq {
		child := childPath(path, strconv.Itoa(i))
		childNode, ok := r.index.Nodes[child]
		if !ok {
			delete(r.cache, path)
			return nil, fmt.Errorf("%w: sequence %q is missing element %d", errs.ErrCorruptArchive, path, i)
		}
		v, err := r.decodeNode(child, childNode)
		if err != nil {
			delete(r.cache, path)
			return nil, err
		}
		seq[i] = v
	}

	return seq, nil
}

func (r *Reader) decodeMapping(path string, node *Node) (any, error) {
	m := make(map[string]any, len(node.Keys))
	if r.shared(path, node) {
		r.cache[path] = m
	}
	for _, key := range node.Keys {
		child := childPath(path, key)
		childNode, ok := r.index.Nodes[child]
		if !ok {
			delete(r.cache, path)
			return nil, fmt.Errorf("%w: mapping %q is missing key %q", errs.ErrCorruptArchive, path, key)
		}
		v, err := r.decodeNode(child, childNode)
		if err != nil {
			delete(r.cache, path)
			return nil, err
		}
		m[key] = v
	}

	return m, nil
}

// decodeObject reallocates the registered struct type for an object node
// and restores its recorded state. The pointer is cached before the state
// is gathered so cyclic objects resolve to themselves.
func (r *Reader) decodeObject(path string, node *Node) (any, error) {
	rt, ok := r.session.ObjectType(node.Type)
	if !ok {
		return nil, fmt.Errorf("%w: object tag %q at %q (register the type before reading)",
			errs.ErrUnknownTypeTag, node.Type, path)
	}

	target := reflect.New(rt).Interface()
	if r.shared(path, node) {
		r.cache[path] = target
	}

	state := make(map[string]any, len(node.Keys))
	for _, key := range node.Keys {
		child := childPath(path, key)
		childNode, ok := r.index.Nodes[child]
		if !ok {
			delete(r.cache, path)
			return nil, fmt.Errorf("%w: object %q is missing field %q", errs.ErrCorruptArchive, path, key)
		}
		v, err := r.decodeNode(child, childNode)
		if err != nil {
			delete(r.cache, path)
			return nil, err
		}
		state[key] = v
	}

	if err := registry.RestoreInto(target, state); err != nil {
		delete(r.cache, path)
		return nil, fmt.Errorf("restore %q: %w", path, err)
	}

	return target, nil
}

func (r *Reader) decodeLeaf(path string, node *Node) (any, error) {
	codec, ok := r.session.CodecByTag(node.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q at %q", errs.ErrUnknownTypeTag, node.Type, path)
	}

	enc := registry.Encoded{Inline: node.Value, Meta: node.Meta}
	if node.Entry != "" {
		payload, err := r.loadPayload(node)
		if err != nil {
			return nil, err
		}
		enc.Payload = payload
	}

	v, err := codec.Decode(enc)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	if r.shared(path, node) {
		r.cache[path] = v
	}

	return v, nil
}

func (r *Reader) loadPayload(node *Node) ([]byte, error) {
	data, err := readEntry(r.entries[node.Entry])
	if err != nil {
		return nil, err
	}
	codec, err := compress.GetCodec(node.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %q: %v", errs.ErrCorruptArchive, node.Entry, err)
	}
	raw, err := codec.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress entry %q: %v", errs.ErrCorruptArchive, node.Entry, err)
	}

	return raw, nil
}

// readEntry reads one container entry in full. The CRC recorded in the
// container is checked as a side effect, so corrupted entries surface here.
func readEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry %q: %v", errs.ErrCorruptArchive, zf.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read entry %q: %v", errs.ErrCorruptArchive, zf.Name, err)
	}

	return data, nil
}
