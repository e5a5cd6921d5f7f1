// Package format defines the shared enums and constants of the holdall
// archive format: container kinds, payload compression tags, and element
// dtypes. The values are wire constants; the index stores their string
// forms, so renaming them breaks archive compatibility.
package format

import "fmt"

// IndexVersion is the archive index layout version written to and checked
// against the "format" field of the index entry.
const IndexVersion = 1

// LibraryVersion is the holdall release recorded in the index "writer" field.
const LibraryVersion = "0.3.0"

type (
	// ContainerKind classifies how a node's children relate to it.
	ContainerKind uint8

	// CompressionType identifies the codec applied to a payload entry
	// before it entered the container.
	CompressionType uint8

	// DType identifies the element type of an array or frame column.
	DType uint8
)

const (
	KindScalar   ContainerKind = 0 // KindScalar is a leaf with no children; omitted in the index.
	KindSequence ContainerKind = 1 // KindSequence is an ordered container with index children.
	KindMapping  ContainerKind = 2 // KindMapping is a keyed container with key children.
	KindObject   ContainerKind = 3 // KindObject is a custom object with state-field children.

	CompressionNone CompressionType = 0 // CompressionNone stores payload bytes as-is; omitted in the index.
	CompressionZstd CompressionType = 1 // CompressionZstd is Zstandard compression.
	CompressionS2   CompressionType = 2 // CompressionS2 is S2 compression.
	CompressionLZ4  CompressionType = 3 // CompressionLZ4 is LZ4 block compression.

	DTypeInvalid DType = 0
	DTypeBool    DType = 1
	DTypeInt8    DType = 2
	DTypeInt16   DType = 3
	DTypeInt32   DType = 4
	DTypeInt64   DType = 5
	DTypeUint8   DType = 6
	DTypeUint16  DType = 7
	DTypeUint32  DType = 8
	DTypeUint64  DType = 9
	DTypeFloat32 DType = 10
	DTypeFloat64 DType = 11
	DTypeString  DType = 12
	DTypeTime    DType = 13
	DTypeAny     DType = 14
)

// String returns the wire name of the kind. KindScalar maps to the empty
// string because scalar nodes omit the kind field entirely.
func (k ContainerKind) String() string {
	switch k {
	case KindScalar:
		return ""
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind parses a container kind from its wire name. The empty string
// parses to KindScalar.
func ParseKind(name string) (ContainerKind, error) {
	switch name {
	case "":
		return KindScalar, nil
	case "sequence":
		return KindSequence, nil
	case "mapping":
		return KindMapping, nil
	case "object":
		return KindObject, nil
	default:
		return 0, fmt.Errorf("unknown container kind: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize as their
// wire names inside the JSON index.
func (k ContainerKind) MarshalText() ([]byte, error) {
	switch k {
	case KindScalar, KindSequence, KindMapping, KindObject:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("unknown container kind: %d", uint8(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ContainerKind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed

	return nil
}

// String returns the wire name of the compression type. CompressionNone maps
// to the empty string because uncompressed nodes omit the compression field.
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return ""
	case CompressionZstd:
		return "zstd"
	case CompressionS2:
		return "s2"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression type from its wire name. The empty
// string parses to CompressionNone.
func ParseCompression(name string) (CompressionType, error) {
	switch name {
	case "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression type: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CompressionType) MarshalText() ([]byte, error) {
	switch c {
	case CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4:
		return []byte(c.String()), nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", uint8(c))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CompressionType) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed

	return nil
}

// String returns the wire name of the dtype.
func (d DType) String() string {
	switch d {
	case DTypeBool:
		return "bool"
	case DTypeInt8:
		return "int8"
	case DTypeInt16:
		return "int16"
	case DTypeInt32:
		return "int32"
	case DTypeInt64:
		return "int64"
	case DTypeUint8:
		return "uint8"
	case DTypeUint16:
		return "uint16"
	case DTypeUint32:
		return "uint32"
	case DTypeUint64:
		return "uint64"
	case DTypeFloat32:
		return "float32"
	case DTypeFloat64:
		return "float64"
	case DTypeString:
		return "string"
	case DTypeTime:
		return "time"
	case DTypeAny:
		return "any"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

var dtypeNames = map[string]DType{
	"bool":    DTypeBool,
	"int8":    DTypeInt8,
	"int16":   DTypeInt16,
	"int32":   DTypeInt32,
	"int64":   DTypeInt64,
	"uint8":   DTypeUint8,
	"uint16":  DTypeUint16,
	"uint32":  DTypeUint32,
	"uint64":  DTypeUint64,
	"float32": DTypeFloat32,
	"float64": DTypeFloat64,
	"string":  DTypeString,
	"time":    DTypeTime,
	"any":     DTypeAny,
}

// ParseDType parses a dtype from its wire name.
func ParseDType(name string) (DType, error) {
	d, ok := dtypeNames[name]
	if !ok {
		return DTypeInvalid, fmt.Errorf("unknown dtype: %q", name)
	}

	return d, nil
}

// MarshalText implements encoding.TextMarshaler.
func (d DType) MarshalText() ([]byte, error) {
	name := d.String()
	if _, ok := dtypeNames[name]; !ok {
		return nil, fmt.Errorf("unknown dtype: %d", uint8(d))
	}

	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DType) UnmarshalText(text []byte) error {
	parsed, err := ParseDType(string(text))
	if err != nil {
		return err
	}
	*d = parsed

	return nil
}

// FixedSize returns the encoded byte width of one element, or 0 for
// variable-width dtypes (string, any).
func (d DType) FixedSize() int {
	switch d {
	case DTypeBool, DTypeInt8, DTypeUint8:
		return 1
	case DTypeInt16, DTypeUint16:
		return 2
	case DTypeInt32, DTypeUint32, DTypeFloat32:
		return 4
	case DTypeInt64, DTypeUint64, DTypeFloat64, DTypeTime:
		return 8
	default:
		return 0
	}
}
