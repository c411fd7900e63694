package codec

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

// Frame layout:  <len> ':' <payload>
// len is the decimal UTF-8 byte count of payload. Frames are concatenated with
// no separator and no envelope; the end of the buffer ends the message.
const separator = ':'

// Encode renders commands as concatenated length-prefixed frames.
// An empty or nil slice encodes to "".
func Encode(commands []string) (string, error) {
	b, err := AppendEncode(nil, commands)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AppendEncode appends the encoding of commands to dst.
// On error dst is returned unchanged.
func AppendEncode(dst []byte, commands []string) ([]byte, error) {
	if len(commands) == 0 {
		return dst, nil
	}
	n := 0
	for i, c := range commands {
		if !utf8.ValidString(c) {
			return dst, &EncodingError{Index: i, Reason: "element is not valid UTF-8 text"}
		}
		n += len(c) + 1 + digits(len(c))
	}

	out := dst
	if cap(out)-len(out) < n {
		out = make([]byte, len(dst), len(dst)+n)
		copy(out, dst)
	}
	for _, c := range commands {
		out = strconv.AppendInt(out, int64(len(c)), 10)
		out = append(out, separator)
		out = append(out, c...)
	}
	return out, nil
}

// Decode parses a buffer produced by Encode. "" decodes to an empty slice.
// The first malformed frame aborts decoding and no partial result is returned.
func Decode(buf string) ([]string, error) {
	return DecodeBytes([]byte(buf))
}

// DecodeBytes is Decode over a byte view. Returned strings do not alias b.
func DecodeBytes(b []byte) ([]string, error) {
	out := make([]string, 0, estimateFrames(b))
	for off := 0; off < len(b); {
		colon := bytes.IndexByte(b[off:], separator)
		if colon < 0 {
			return nil, &DecodingError{Kind: MissingSeparator, Offset: off}
		}
		colon += off

		n, err := parseLength(b[off:colon], off)
		if err != nil {
			return nil, err
		}

		start := colon + 1
		if avail := len(b) - start; n > avail { // overflow-safe bound check
			return nil, &DecodingError{Kind: InsufficientData, Offset: start, Declared: n, Available: avail}
		}
		payload := b[start : start+n]
		if !utf8.Valid(payload) {
			return nil, &DecodingError{Kind: InvalidUTF8, Offset: start}
		}
		out = append(out, string(payload))
		off = start + n
	}
	return out, nil
}

func parseLength(field []byte, off int) (int, error) {
	if len(field) == 0 {
		return 0, &DecodingError{Kind: EmptyLength, Offset: off}
	}
	if field[0] == '-' && len(field) > 1 && allDigits(field[1:]) {
		v, err := strconv.Atoi(string(field))
		if err != nil {
			return 0, &DecodingError{Kind: InvalidLength, Offset: off}
		}
		return 0, &DecodingError{Kind: NegativeLength, Offset: off, Declared: v}
	}
	if !allDigits(field) {
		return 0, &DecodingError{Kind: InvalidLength, Offset: off}
	}
	// leading zeros are accepted: "04" is 4
	v, err := strconv.Atoi(string(field))
	if err != nil {
		return 0, &DecodingError{Kind: InvalidLength, Offset: off}
	}
	return v, nil
}

func allDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}

// estimateFrames sizes the output slice; every frame carries one colon at least.
func estimateFrames(b []byte) int {
	n := bytes.Count(b, []byte{separator})
	if n > 64 {
		n = 64
	}
	return n
}
