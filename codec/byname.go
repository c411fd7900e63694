package codec

import (
	"fmt"
	"sort"
)

var listCodecs = map[string]func() Codec[[]string]{
	"frames":  func() Codec[[]string] { return Frames{} },
	"json":    func() Codec[[]string] { return JSON[[]string]{} },
	"msgpack": func() Codec[[]string] { return Msgpack[[]string]{} },
	"cbor":    func() Codec[[]string] { return MustCBOR[[]string](true) },
	"proto":   func() Codec[[]string] { return NewProtoList() },
}

// ByName returns the command-list codec registered under name.
func ByName(name string) (Codec[[]string], error) {
	mk, ok := listCodecs[name]
	if !ok {
		return nil, fmt.Errorf("codec: unknown format %q (want one of %v)", name, Names())
	}
	return mk(), nil
}

// Names lists the registered command-list formats in sorted order.
func Names() []string {
	out := make([]string, 0, len(listCodecs))
	for n := range listCodecs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
