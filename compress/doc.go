// Package compress provides the payload compression codecs for holdall
// archives.
//
// Compression happens outside the container: the writer compresses each
// payload with one of these codecs before the bytes enter the ZIP (which
// stores them with method Store), and records the codec in the node's
// descriptor. Readers pick the matching decompressor per node, so archives
// can mix compressed and uncompressed payloads freely and the index entry
// stays readable with stock ZIP tooling.
//
// # Supported Algorithms
//
// Four codecs are built in, selected by format.CompressionType:
//
//   - None: payloads stored as-is. For tiny payloads and data that is
//     already compressed (media, encrypted blobs).
//   - Zstd: best ratio, moderate speed. The default for archival use.
//   - S2: balanced speed and ratio, very cheap on both sides.
//   - LZ4: fastest decompression, moderate ratio. For read-heavy archives.
//
// A rough guide for typical columnar payloads:
//
//	Algorithm  | Compress  | Decompress | Ratio
//	-----------|-----------|------------|------
//	None       | -         | -          | 1.0x
//	LZ4        | fast      | fastest    | 1.3-2x
//	S2         | fast      | fast       | 1.5-2.5x
//	Zstd       | moderate  | fast       | 2-5x
//
// Text-heavy payloads (string columns, spilled strings) compress markedly
// better than already-dense float data; fully random data compresses not at
// all and is better stored with None.
//
// # Interfaces
//
// The package splits the two directions into Compressor and Decompressor and
// combines them in Codec. CreateCodec builds a codec for a compression type;
// GetCodec returns a shared built-in instance:
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	compressed, err := codec.Compress(payload)
//
// # Zstd Variants
//
// The default zstd codec is the pure-Go klauspost implementation. Building
// with the cgo_zstd tag swaps in the cgo-backed valyala/gozstd binding, which
// trades build portability for compression throughput. Both produce standard
// Zstandard frames; archives written by either are readable by both.
//
// # Thread Safety
//
// All built-in codecs are stateless values whose internal buffers live in
// sync.Pools, so a single codec instance is safe for concurrent use.
package compress
