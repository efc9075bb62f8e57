package codec

import (
	"encoding/json"

	"fastcodec/pkg/fast/message"
)

type jsonCodec struct{}

// JSON returns a JSON codec (RFC 8259). Content-Type: application/json
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Marshal(m *message.Message) ([]byte, error) {
	return json.Marshal(map[string]any{m.Name: m.ToMap()})
}
