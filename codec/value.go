package codec

import "fmt"

// EncodeValue encodes an untyped value, as decoded from JSON or msgpack.
// Only []string and []any holding strings are accepted.
func EncodeValue(v any) (string, error) {
	cmds, err := Commands(v)
	if err != nil {
		return "", err
	}
	return Encode(cmds)
}

// Commands checks that v is a list of strings and returns it as []string.
func Commands(v any) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		cmds := make([]string, len(vv))
		for i, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil, &EncodingError{Index: i, Reason: fmt.Sprintf("all elements must be strings, got %s", typeName(e))}
			}
			cmds[i] = s
		}
		return cmds, nil
	default:
		return nil, &EncodingError{Index: -1, Reason: "input must be a list of strings"}
	}
}

// DecodeValue decodes an untyped buffer. Only string and []byte are accepted.
func DecodeValue(v any) ([]string, error) {
	switch vv := v.(type) {
	case string:
		return Decode(vv)
	case []byte:
		return DecodeBytes(vv)
	default:
		return nil, &DecodingError{Kind: InvalidInput, Detail: "encoded data must be a string, got " + typeName(v)}
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
