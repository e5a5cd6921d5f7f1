// Package frame provides the tabular and array data model stored in
// holdall archives: Frame (named equal-length columns), Series (a single
// typed column), and Array (an n-dimensional rectangular array).
//
// These types exist because Go has no ambient dataframe library to adapt.
// They are deliberately small: enough structure to round-trip columnar
// data losslessly through an archive and inspect it without decoding
// whole payloads, not a query or computation engine.
//
// # Wire Layout
//
// Each value serializes into one payload entry plus JSON metadata in the
// node descriptor. A frame payload is the concatenation of its column
// segments in column order; the metadata records the schema:
//
//	{"rows": 3, "columns": [
//	    {"name": "ts", "dtype": "time", "size": 24},
//	    {"name": "load", "dtype": "float64", "size": 24},
//	    {"name": "host", "dtype": "string", "size": 21}
//	]}
//
// Column segments use three encodings by dtype:
//   - Fixed-width dtypes (bool, ints, uints, floats, time): elements
//     packed back to back in the recorded byte order. Times are Unix
//     nanoseconds.
//   - string: uvarint byte length followed by UTF-8 bytes, per element.
//   - any: the whole column as one deterministic CBOR array (RFC 8949
//     Core Deterministic Encoding), for heterogeneous data.
//
// Byte order defaults to little endian and is recorded in the metadata
// when it differs, so archives decode correctly on any host.
//
// # Registration
//
// Register installs the codecs for Frame, Series, Array, and the bulk
// slice types []float64, []int64, []string, and []bool into a registry:
//
//	r := registry.New()
//	if err := frame.Register(r); err != nil { ... }
//
// The holdall facade registers them into the default registry, so callers
// going through holdall.Create and holdall.Open get them for free.
//
// # Thread Safety
//
// Frame, Series, and Array are immutable after construction and safe for
// concurrent reads. The codecs are stateless and safe for concurrent use.
package frame
