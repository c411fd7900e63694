package codec

import "fmt"

// LimitCodec bounds the size of buffers handed to Inner.Decode, so a hostile
// peer cannot make the decoder walk an arbitrarily large buffer.
// Encode passes through. MaxDecode <= 0 turns the bound off.
type LimitCodec[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
