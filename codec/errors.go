package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding is matched by every *EncodingError.
	ErrEncoding = errors.New("codec: encoding error")
	// ErrDecoding is matched by every *DecodingError.
	ErrDecoding = errors.New("codec: decoding error")

	ErrMissingSeparator = errors.New("codec: missing separator")
	ErrEmptyLength      = errors.New("codec: empty length field")
	ErrInvalidLength    = errors.New("codec: invalid length")
	ErrNegativeLength   = errors.New("codec: negative length")
	ErrInsufficientData = errors.New("codec: insufficient data")
	ErrInvalidUTF8      = errors.New("codec: invalid encoding")
	ErrInvalidInput     = errors.New("codec: invalid input")

	ErrPayloadTooLarge = errors.New("codec: payload too large")
)

// EncodingError reports an input shape violation on encode.
// Index is the offending element, or -1 when the input as a whole is rejected.
type EncodingError struct {
	Index  int
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Index < 0 {
		return "codec: " + e.Reason
	}
	return fmt.Sprintf("codec: element %d: %s", e.Index, e.Reason)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// DecodeErrorKind tells malformed-buffer conditions apart.
type DecodeErrorKind uint8

const (
	MissingSeparator DecodeErrorKind = iota + 1
	EmptyLength
	InvalidLength
	NegativeLength
	InsufficientData
	InvalidUTF8
	InvalidInput
)

var kindSentinels = map[DecodeErrorKind]error{
	MissingSeparator: ErrMissingSeparator,
	EmptyLength:      ErrEmptyLength,
	InvalidLength:    ErrInvalidLength,
	NegativeLength:   ErrNegativeLength,
	InsufficientData: ErrInsufficientData,
	InvalidUTF8:      ErrInvalidUTF8,
	InvalidInput:     ErrInvalidInput,
}

func (k DecodeErrorKind) String() string {
	switch k {
	case MissingSeparator:
		return "missing_separator"
	case EmptyLength:
		return "empty_length"
	case InvalidLength:
		return "invalid_length"
	case NegativeLength:
		return "negative_length"
	case InsufficientData:
		return "insufficient_data"
	case InvalidUTF8:
		return "invalid_encoding"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// DecodingError reports the first malformed frame of a buffer.
// Offset is a byte position in the buffer. Declared and Available are only
// meaningful for InsufficientData and NegativeLength.
type DecodingError struct {
	Kind      DecodeErrorKind
	Offset    int
	Declared  int
	Available int
	Detail    string
}

func (e *DecodingError) Error() string {
	switch e.Kind {
	case MissingSeparator:
		return fmt.Sprintf("codec: missing colon separator at byte position %d", e.Offset)
	case EmptyLength:
		return fmt.Sprintf("codec: empty length field at byte position %d", e.Offset)
	case InvalidLength:
		return fmt.Sprintf("codec: invalid length at byte position %d", e.Offset)
	case NegativeLength:
		return fmt.Sprintf("codec: negative length %d at byte position %d", e.Declared, e.Offset)
	case InsufficientData:
		return fmt.Sprintf("codec: insufficient data: expected %d bytes at position %d, but only %d bytes available",
			e.Declared, e.Offset, e.Available)
	case InvalidUTF8:
		return fmt.Sprintf("codec: invalid UTF-8 data at byte position %d", e.Offset)
	case InvalidInput:
		return "codec: " + e.Detail
	default:
		return fmt.Sprintf("codec: malformed buffer at byte position %d", e.Offset)
	}
}

func (e *DecodingError) Is(target error) bool {
	if target == ErrDecoding {
		return true
	}
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}
