package message

import (
	"encoding/hex"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts the message to a protobuf Struct keyed by template name,
// for transports that exchange google.protobuf.Struct payloads. Byte vectors
// are rendered as hex strings since Struct has no bytes kind.
func (m *Message) ToStruct() (*structpb.Struct, error) {
	body := structValues(m.ToMap())
	s, err := structpb.NewStruct(map[string]any{m.Name: body})
	if err != nil {
		return nil, fmt.Errorf("to struct: %w", err)
	}
	return s, nil
}

// structValues rewrites values structpb cannot represent directly.
func structValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = structValue(v)
	}
	return out
}

func structValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return hex.EncodeToString(x)
	case uint64:
		return float64(x)
	case int64:
		return float64(x)
	case map[string]any:
		return structValues(x)
	case []any:
		items := make([]any, len(x))
		for i, it := range x {
			items[i] = structValue(it)
		}
		return items
	}
	return v
}
