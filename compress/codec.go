package compress

import (
	"fmt"

	"github.com/holdall-io/holdall/format"
)

// Compressor compresses an archive payload before it is written into the
// container.
//
// Payloads are complete encoded values (a columnar frame, an array, a spilled
// string) and are compressed independently, so any payload can be read back
// without touching its neighbors.
type Compressor interface {
	// Compress compresses the input data and returns the compressed result.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload that was compressed with the matching
// Compressor.
//
// The input must have been produced by the same algorithm; the decompressor
// validates the stream format and returns an error on corrupted or foreign
// data. Implementations must be safe for concurrent use, since one reader
// can serve Get calls for many payloads.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original bytes.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. The writer uses the compress side when
// staging payload entries, the reader picks the decompress side based on the
// compression tag recorded in each node descriptor.
type Codec interface {
	Compressor
	Decompressor
}

// Stats describes one compression operation. The writer logs these at debug
// level after staging each payload entry.
type Stats struct {
	// Algorithm identifies the codec used.
	Algorithm format.CompressionType

	// OriginalSize is the payload size before compression.
	OriginalSize int64

	// CompressedSize is the payload size after compression.
	CompressedSize int64
}

// Ratio returns compressed size over original size. Values below 1.0 mean
// the payload shrank; 0.0 is returned for empty input.
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage (0-100%).
func (s Stats) SpaceSavings() float64 {
	return (1.0 - s.Ratio()) * 100.0
}

// CreateCodec is a factory that creates a Codec for the specified
// compression type. The target string names the consumer for error messages.
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
