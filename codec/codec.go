// Package codec implements the length-prefixed command-list format used on the
// radio channel, plus byte codecs for the records pitradio stores.
//
// A command list encodes as concatenated frames "<len>:<payload>" where len is
// the UTF-8 byte count of payload:
//
//	["Push", "Box,box"]  ->  "4:Push7:Box,box"
//	["", "Push", ""]     ->  "0:4:Push0:"
//
// Encode/Decode are pure and safe for concurrent use.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Frames is the Codec form of Encode/DecodeBytes. The zero value is ready to use.
type Frames struct{}

var _ Codec[[]string] = Frames{}

func (Frames) Encode(cmds []string) ([]byte, error) { return AppendEncode(nil, cmds) }
func (Frames) Decode(b []byte) ([]string, error)    { return DecodeBytes(b) }
