package compress

// ZstdCompressor provides Zstandard compression for archive payloads.
//
// Zstd is the holdall default: it gives the best ratio of the built-in
// codecs at a decompression speed that keeps lazy reads cheap, which suits
// archives written once and read many times.
//
// The Compress and Decompress methods live in zstd_pure.go (pure-Go
// klauspost backend, the default) and zstd_cgo.go (valyala/gozstd backend,
// selected by the cgo_zstd build tag). Both emit standard Zstandard frames.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
