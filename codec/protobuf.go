package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *structpb.ListValue { return &structpb.ListValue{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

// ProtoList carries a command list as a google.protobuf.ListValue of strings.
type ProtoList struct {
	pb Protobuf[*structpb.ListValue]
}

var _ Codec[[]string] = ProtoList{}

func NewProtoList() ProtoList {
	return ProtoList{pb: NewProtobuf(func() *structpb.ListValue { return &structpb.ListValue{} })}
}

func (c ProtoList) Encode(cmds []string) ([]byte, error) {
	lv := &structpb.ListValue{Values: make([]*structpb.Value, len(cmds))}
	for i, s := range cmds {
		lv.Values[i] = structpb.NewStringValue(s)
	}
	return c.pb.Encode(lv)
}

func (c ProtoList) Decode(b []byte) ([]string, error) {
	if c.pb.new == nil {
		c = NewProtoList()
	}
	lv, err := c.pb.Decode(b)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(lv.GetValues()))
	for i, v := range lv.GetValues() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, &DecodingError{Kind: InvalidInput, Detail: fmt.Sprintf("list value %d is not a string", i)}
		}
		out[i] = sv.StringValue
	}
	return out, nil
}
