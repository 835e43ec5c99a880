package codec

import (
	"encoding/json"

	"go.uber.org/zap"
)

// DefaultMaxEncodedSize bounds a single encoded value. Values above the
// limit fail at encode time before touching memory.
const DefaultMaxEncodedSize = 16 << 20

// Codec encodes and decodes values against a Memory.
// A zero Codec is not usable; construct with New.
type Codec struct {
	log     *zap.Logger
	maxSize uint32
}

// Option configures a Codec
type Option func(*Codec)

// WithMaxEncodedSize overrides the encoded value size limit.
// Zero disables the limit.
func WithMaxEncodedSize(n uint32) Option {
	return func(c *Codec) {
		c.maxSize = n
	}
}

// WithLogger attaches a logger for debug-level encode/decode tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Codec with the default size limit.
func New(opts ...Option) *Codec {
	c := &Codec{
		log:     zap.NewNop(),
		maxSize: DefaultMaxEncodedSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) overLimit(size int) bool {
	return c.maxSize > 0 && uint64(size) > uint64(c.maxSize)
}

// EncodedSize reports how many bytes EncodeStructured would write for v,
// or 0 when v cannot be serialized.
func (c *Codec) EncodedSize(v any) uint32 {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return uint32(len(data))
}
