package stream

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/arloliu/zxc/dispatch"
	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
	"github.com/arloliu/zxc/frame"
	"github.com/arloliu/zxc/internal/options"
)

// Config holds the settings of one stream operation. It is built from
// Options and never shared between operations.
type Config struct {
	threads      int
	backlog      int
	level        format.Level
	checksum     bool
	blockSize    int
	maxBlockSize int
	codec        format.Codec
	table        *dispatch.Table
	logger       *slog.Logger
}

// Option represents a functional option for configuring a stream operation.
type Option = options.Option[*Config]

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		level:        format.LevelDefault,
		blockSize:    frame.DefaultBlockSize,
		maxBlockSize: frame.DefaultMaxBlockSize,
		codec:        format.CodecLZ4,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.table == nil {
		cfg.table = dispatch.Select()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	if c.blockSize > c.maxBlockSize {
		return fmt.Errorf("%w: block size %d exceeds the limit %d", errs.ErrInvalidBlockSize, c.blockSize, c.maxBlockSize)
	}

	return nil
}

// WithThreads sets the number of worker goroutines. Zero, the default,
// uses one worker per available CPU.
func WithThreads(n int) Option {
	return options.New(func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("%w: %d", errs.ErrInvalidThreads, n)
		}
		c.threads = n

		return nil
	})
}

// WithBacklog sets how many finished blocks may wait for the writer in
// addition to one per worker. Zero, the default, equals the thread count.
func WithBacklog(n int) Option {
	return options.New(func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("%w: %d", errs.ErrInvalidBacklog, n)
		}
		c.backlog = n

		return nil
	})
}

// WithLevel sets the compression level, 1 (fastest) to 5 (best ratio).
// The default is 3. Decompression ignores it.
func WithLevel(level format.Level) Option {
	return options.New(func(c *Config) error {
		if !level.IsValid() {
			return fmt.Errorf("%w: %d", errs.ErrInvalidLevel, level)
		}
		c.level = level

		return nil
	})
}

// WithChecksum enables per-block checksums when compressing, and checksum
// verification when decompressing a stream that carries them.
func WithChecksum(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.checksum = enabled
	})
}

// WithBlockSize sets the uncompressed size of each block when compressing.
func WithBlockSize(size int) Option {
	return options.New(func(c *Config) error {
		if size < frame.MinBlockSize || size > frame.MaxBlockSize {
			return fmt.Errorf("%w: %d outside [%d, %d]",
				errs.ErrInvalidBlockSize, size, frame.MinBlockSize, frame.MaxBlockSize)
		}
		c.blockSize = size

		return nil
	})
}

// WithMaxBlockSize sets the largest block size accepted in either direction.
// Decompressing a stream whose header declares larger blocks fails with
// errs.ErrResourceExhaustion. The default is 64 MiB.
func WithMaxBlockSize(size int) Option {
	return options.New(func(c *Config) error {
		if size < frame.MinBlockSize || size > frame.MaxBlockSize {
			return fmt.Errorf("%w: limit %d outside [%d, %d]",
				errs.ErrInvalidBlockSize, size, frame.MinBlockSize, frame.MaxBlockSize)
		}
		c.maxBlockSize = size

		return nil
	})
}

// WithCodec sets the codec family used when compressing. The default is LZ4.
// Decompression always uses the family recorded in the stream header.
func WithCodec(codec format.Codec) Option {
	return options.New(func(c *Config) error {
		if !codec.IsValid() {
			return fmt.Errorf("%w: %d", errs.ErrInvalidCodec, codec)
		}
		c.codec = codec

		return nil
	})
}

// WithBackend overrides the process-wide dispatch table.
func WithBackend(table *dispatch.Table) Option {
	return options.NoError(func(c *Config) {
		c.table = table
	})
}

// WithLogger sets the logger for debug output. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *Config) {
		c.logger = logger
	})
}
