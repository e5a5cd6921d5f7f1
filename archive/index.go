package archive

import (
	"fmt"
	"strconv"

	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/format"
)

// Index is the archive's metadata entry, stored uncompressed under
// IndexName. It is the single source of truth for the archive's contents:
// every addressable path has a node descriptor here, and payload entries
// exist only because some node names them.
type Index struct {
	// Format is the index layout version.
	Format int `json:"format"`

	// Created is the sealing time in RFC 3339.
	Created string `json:"created"`

	// Writer identifies the library release that wrote the archive.
	Writer string `json:"writer"`

	// Self describes the archive as a whole: the root keys in Put order
	// and, for archives holding a single object's state, its object tag.
	Self *Node `json:"self,omitempty"`

	// Nodes maps every index path to its descriptor.
	Nodes map[string]*Node `json:"nodes"`

	// Refs maps reference ids, as decimal strings, to canonical paths.
	Refs map[string]string `json:"refs,omitempty"`
}

// canonicalPath resolves a reference id to the path of its canonical node.
func (idx *Index) canonicalPath(ref int) (string, bool) {
	path, ok := idx.Refs[strconv.Itoa(ref)]
	return path, ok
}

// validate checks the structural promises readers rely on: a supported
// format version, payload entries that exist in the container, reference
// ids that resolve to real canonical nodes, and self keys that name real
// roots. Everything else is checked lazily when the node is accessed.
func (idx *Index) validate(entries map[string]bool) error {
	if idx.Format != format.IndexVersion {
		return fmt.Errorf("%w: unsupported index format %d (want %d)",
			errs.ErrCorruptArchive, idx.Format, format.IndexVersion)
	}
	if idx.Nodes == nil {
		return fmt.Errorf("%w: index has no nodes table", errs.ErrCorruptArchive)
	}

	for path, node := range idx.Nodes {
		if node == nil {
			return fmt.Errorf("%w: null descriptor at %q", errs.ErrCorruptArchive, path)
		}
		if _, err := SplitPath(path); err != nil {
			return fmt.Errorf("%w: malformed node path %q", errs.ErrCorruptArchive, path)
		}
		if node.Entry != "" && !entries[node.Entry] {
			return fmt.Errorf("%w: node %q references missing entry %q",
				errs.ErrCorruptArchive, path, node.Entry)
		}
		if node.IsAlias() {
			if _, ok := idx.canonicalPath(node.Ref); !ok {
				return fmt.Errorf("%w: node %q aliases unknown ref %d",
					errs.ErrCorruptArchive, path, node.Ref)
			}
		}
	}

	for id, canonical := range idx.Refs {
		n, err := strconv.Atoi(id)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: malformed ref id %q", errs.ErrCorruptArchive, id)
		}
		target, ok := idx.Nodes[canonical]
		if !ok {
			return fmt.Errorf("%w: ref %s points at missing path %q",
				errs.ErrCorruptArchive, id, canonical)
		}
		if target.IsAlias() {
			return fmt.Errorf("%w: ref %s points at alias node %q",
				errs.ErrCorruptArchive, id, canonical)
		}
	}

	if idx.Self != nil {
		for _, key := range idx.Self.Keys {
			if _, ok := idx.Nodes[escapeSegment(key)]; !ok {
				return fmt.Errorf("%w: self key %q has no root node",
					errs.ErrCorruptArchive, key)
			}
		}
	}

	return nil
}
