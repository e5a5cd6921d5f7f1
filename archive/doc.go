// Package archive implements the holdall container: a ZIP file holding a
// JSON index of node descriptors plus one payload entry per bulk value.
//
// # Writing
//
// A Writer walks each Put value in a single pass. Values with a registered
// codec become leaf nodes; slices, arrays, maps, and structs without one
// break down structurally into child nodes addressed by dotted paths.
// Containers seen more than once are stored once and recorded as aliases,
// so shared state and cycles survive a round trip. Seal writes the index
// and finalizes the container; Discard abandons it.
//
// # Reading
//
// A Reader parses and validates the index up front and nothing else. Get
// materializes one path on demand, reading only the payload entries that
// path needs, which keeps partial access to large archives cheap. Damage to
// one payload entry surfaces when that path is read and leaves every other
// path readable.
//
// # Paths
//
// Index paths are dot-separated: root key, then child steps. Mapping keys
// that contain dots or backslashes are escaped, and JoinPath builds a
// correctly escaped path from raw names. Sequence children are addressed by
// decimal position:
//
//	rd.Get("model")                      // whole root
//	rd.Get("model.layers.0.weights")     // one nested value
//	rd.Get(archive.JoinPath("a.b", "c")) // root key with a literal dot
//
// # Container layout
//
// Every entry is stored uncompressed at the ZIP level; payload compression
// is holdall's own, applied per entry and recorded per node. The index
// lives under __index__.json and payload entries under payload/, named
// after their sanitized path and type tag. An archive remains inspectable
// with any unzip tool.
package archive
