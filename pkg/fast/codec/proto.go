package codec

import (
	"google.golang.org/protobuf/proto"

	"fastcodec/pkg/fast/message"
)

type protoCodec struct {
	mo proto.MarshalOptions
}

// Proto returns a Protocol Buffers codec that marshals messages as
// deterministic google.protobuf.Struct payloads.
// Content-Type: application/x-protobuf
func Proto() Codec {
	return protoCodec{mo: proto.MarshalOptions{Deterministic: true}}
}

func (protoCodec) Name() string        { return "pb" }
func (protoCodec) ContentType() string { return "application/x-protobuf" }

func (p protoCodec) Marshal(m *message.Message) ([]byte, error) {
	s, err := m.ToStruct()
	if err != nil {
		return nil, err
	}
	return p.mo.Marshal(s)
}
