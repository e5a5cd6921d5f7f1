package archive

import (
	"fmt"
	"log/slog"

	"github.com/holdall-io/holdall/compress"
	"github.com/holdall-io/holdall/format"
	"github.com/holdall-io/holdall/internal/options"
	"github.com/holdall-io/holdall/registry"
)

// DefaultInlineLimit is the string length in bytes above which the writer
// spills a string to its own payload entry instead of inlining it in the
// index.
const DefaultInlineLimit = 4096

// config carries the knobs shared by writers and readers. Readers use only
// the registry and logger; the rest shapes how a writer lays values out.
type config struct {
	compression format.CompressionType
	inlineLimit int
	aliasing    bool
	clobber     bool
	registry    *registry.Registry
	logger      *slog.Logger
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		compression: format.CompressionNone,
		inlineLimit: DefaultInlineLimit,
		aliasing:    true,
		registry:    registry.Default(),
		logger:      slog.New(slog.DiscardHandler),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *config) setCompression(ct format.CompressionType) error {
	if _, err := compress.CreateCodec(ct, "payload"); err != nil {
		return err
	}
	c.compression = ct

	return nil
}

func (c *config) setInlineLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("inline limit must not be negative, got %d", limit)
	}
	c.inlineLimit = limit

	return nil
}

func (c *config) setRegistry(r *registry.Registry) error {
	if r == nil {
		return fmt.Errorf("registry must not be nil")
	}
	c.registry = r

	return nil
}

func (c *config) setLogger(logger *slog.Logger) error {
	if logger == nil {
		return fmt.Errorf("logger must not be nil")
	}
	c.logger = logger

	return nil
}

// Option configures a Writer or a Reader.
type Option = options.Option[*config]

// WithCompression selects the codec applied to every payload entry the
// writer stages. The codec is recorded per node, so readers need no
// configuration to pick the matching decompressor. Default: no compression.
//
// Parameters:
//   - ct: compression type (format.CompressionNone, CompressionZstd,
//     CompressionS2, or CompressionLZ4)
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(cfg *config) error {
		return cfg.setCompression(ct)
	})
}

// WithoutAliasing disables identity tracking. Every occurrence of a shared
// container is encoded as an independent copy and nothing is recorded in
// the reference table. Cyclic values will not terminate without tracking.
func WithoutAliasing() Option {
	return options.NoError(func(cfg *config) {
		cfg.aliasing = false
	})
}

// WithInlineLimit sets the string length in bytes above which the writer
// stores a string as its own payload entry rather than inline JSON. A limit
// of zero spills every non-empty string.
func WithInlineLimit(limit int) Option {
	return options.New(func(cfg *config) error {
		return cfg.setInlineLimit(limit)
	})
}

// WithRegistry selects the type registry consulted instead of the shared
// default. Writers snapshot it once at creation, readers once at open.
func WithRegistry(r *registry.Registry) Option {
	return options.New(func(cfg *config) error {
		return cfg.setRegistry(r)
	})
}

// WithLogger attaches a structured logger. Writers log staged entries and
// seal summaries at debug level; readers log per-path failures of GetMany
// at warn level. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return options.New(func(cfg *config) error {
		return cfg.setLogger(logger)
	})
}

// WithClobber lets Create replace an existing archive file. Without it,
// Create fails when the target path already exists.
func WithClobber() Option {
	return options.NoError(func(cfg *config) {
		cfg.clobber = true
	})
}
