package codec

import (
	"encoding/json"
	"testing"

	cbor "github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"fastcodec/pkg/fast"
	"fastcodec/pkg/fast/message"
)

func sampleMessage() *message.Message {
	return &message.Message{
		TemplateID: 1,
		Name:       "Quote",
		Fields: []message.Field{
			{ID: 1, Name: "Symbol", Kind: message.KindScalar, Value: fast.ASCIIString("GEH6")},
			{ID: 2, Name: "Qty", Kind: message.KindScalar, Value: fast.UInt32(10)},
		},
	}
}

func TestJSONCodec(t *testing.T) {
	b, err := JSON().Marshal(sampleMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["Quote"]["Symbol"] != "GEH6" || out["Quote"]["Qty"].(float64) != 10 {
		t.Fatalf("roundtrip mismatch: %#v", out)
	}
}

func TestCBORCodec(t *testing.T) {
	c, err := CBOR()
	if err != nil {
		t.Fatalf("new cbor: %v", err)
	}
	b, err := c.Marshal(sampleMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]map[string]any
	if err := cbor.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["Quote"]["Symbol"] != "GEH6" {
		t.Fatalf("roundtrip mismatch: %#v", out)
	}
}

func TestProtoCodec(t *testing.T) {
	b, err := Proto().Marshal(sampleMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	body := s.Fields["Quote"].GetStructValue()
	if body.Fields["Symbol"].GetStringValue() != "GEH6" || body.Fields["Qty"].GetNumberValue() != 10 {
		t.Fatalf("roundtrip mismatch: %v", &s)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Get("json") == nil || r.Get("pb") == nil {
		t.Fatalf("built-ins missing")
	}
	if r.Get("cbor") != nil {
		t.Fatalf("cbor preloaded")
	}
	c, err := CBOR()
	if err != nil {
		t.Fatal(err)
	}
	r.Register(c)
	if got := r.Get("cbor"); got == nil || got.ContentType() != "application/cbor" {
		t.Fatalf("cbor registration: %v", got)
	}
}
