package archive

import (
	"fmt"
	"strings"

	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/internal/hash"
)

// IndexName is the container entry holding the archive index.
const IndexName = "__index__.json"

// payloadPrefix namespaces every payload entry so encoded data can never
// collide with the index entry, whatever keys the caller uses.
const payloadPrefix = "payload/"

// escapeSegment escapes the path metacharacters of a single segment: "."
// becomes `\.` and `\` becomes `\\`. Segments without metacharacters are
// returned unchanged.
func escapeSegment(s string) string {
	if !strings.ContainsAny(s, `.\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := range len(s) {
		c := s[i]
		if c == '.' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// JoinPath builds an index path from raw segment names, escaping any path
// metacharacters they contain. Use it to address keys with literal dots:
//
//	value, err := rd.Get(archive.JoinPath("config.yaml", "size"))
func JoinPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = escapeSegment(s)
	}

	return strings.Join(escaped, ".")
}

// SplitPath decomposes an index path into its raw segment names, undoing
// the escaping applied by JoinPath. Empty paths, empty segments, and a
// trailing escape character are rejected with ErrInvalidPath.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", errs.ErrInvalidPath)
	}

	var (
		segments []string
		current  strings.Builder
	)
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '\\':
			if i+1 >= len(path) {
				return nil, fmt.Errorf("%w: trailing escape in %q", errs.ErrInvalidPath, path)
			}
			i++
			current.WriteByte(path[i])
		case '.':
			if current.Len() == 0 {
				return nil, fmt.Errorf("%w: empty segment in %q", errs.ErrInvalidPath, path)
			}
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() == 0 {
		return nil, fmt.Errorf("%w: empty segment in %q", errs.ErrInvalidPath, path)
	}

	return append(segments, current.String()), nil
}

// childPath appends one raw segment to a parent path.
func childPath(parent, segment string) string {
	return parent + "." + escapeSegment(segment)
}

// entrySafe reports whether c may appear in a container entry name.
func entrySafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.' || c == '_' || c == '-':
		return true
	default:
		return false
	}
}

// entryName derives the container entry name for the payload at an index
// path. Segments become directory levels under payload/ and carry the type
// tag as their final extension. Bytes outside [A-Za-z0-9._-] are replaced
// with underscores, and any path that needed replacement gets a short hash
// of the raw path so hostile keys that sanitize alike still map to distinct
// entries.
func entryName(path, tag string) (string, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return "", err
	}

	changed := false
	cleaned := make([]string, len(segments))
	for i, seg := range segments {
		var b strings.Builder
		b.Grow(len(seg))
		for j := range len(seg) {
			if c := seg[j]; entrySafe(c) {
				b.WriteByte(c)
			} else {
				b.WriteByte('_')
				changed = true
			}
		}
		cleaned[i] = b.String()

		// "." and ".." must not become directory levels.
		switch cleaned[i] {
		case ".", "..":
			cleaned[i] = strings.Repeat("_", len(cleaned[i]))
			changed = true
		}
	}

	name := payloadPrefix + strings.Join(cleaned, "/")
	if changed {
		name += "-" + hash.Suffix(path)
	}

	return name + "." + tag, nil
}
