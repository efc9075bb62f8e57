package codec

import (
	cbor "github.com/fxamacker/cbor/v2"

	"fastcodec/pkg/fast/message"
)

type cborCodec struct{ enc cbor.EncMode }

// CBOR returns a deterministic CBOR codec using the canonical encoding
// options (RFC 7049 canonical CBOR).
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em}, nil
}

func (cborCodec) Name() string        { return "cbor" }
func (cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) Marshal(m *message.Message) ([]byte, error) {
	return c.enc.Marshal(map[string]any{m.Name: m.ToMap()})
}
