package text

import (
	"strconv"
	"strings"

	"fastcodec/pkg/fast"
)

// JSONFactory formats one decoded message as a JSON document:
// {"Name": {"field": value, "seq": [{...}], "group": {...}}}.
// Null fields are emitted as JSON null; byte vectors as hex strings.
type JSONFactory struct {
	b          strings.Builder
	blockStart bool
	dynamic    []bool
}

// NewJSONFactory creates an empty JSON factory.
func NewJSONFactory() *JSONFactory { return &JSONFactory{} }

// JSON returns the rendered form of the last decoded message.
func (f *JSONFactory) JSON() string { return f.b.String() }

func (f *JSONFactory) reset() {
	f.b.Reset()
	f.blockStart = false
	f.dynamic = f.dynamic[:0]
}

func (f *JSONFactory) comma() {
	if f.blockStart {
		f.blockStart = false
		return
	}
	f.b.WriteByte(',')
}

func (f *JSONFactory) key(name string) {
	f.comma()
	f.b.WriteString(strconv.Quote(name))
	f.b.WriteByte(':')
}

func appendJSONValue(b *strings.Builder, value fast.Value) {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case fast.ASCIIString:
		b.WriteString(strconv.Quote(string(v)))
	case fast.UnicodeString:
		b.WriteString(strconv.Quote(string(v)))
	case fast.Bytes:
		b.WriteString(strconv.Quote(v.String()))
	case fast.Decimal:
		b.WriteString(v.String())
	default:
		b.WriteString(value.String())
	}
}

func (f *JSONFactory) StartTemplate(id uint32, name string) {
	f.reset()
	f.b.WriteByte('{')
	f.b.WriteString(strconv.Quote(name))
	f.b.WriteString(":{")
	f.blockStart = true
}

func (f *JSONFactory) StopTemplate() { f.b.WriteString("}}") }

func (f *JSONFactory) SetValue(id uint32, name string, value fast.Value) {
	f.key(name)
	appendJSONValue(&f.b, value)
}

func (f *JSONFactory) StartSequence(id uint32, name string, length uint32) {
	f.key(name)
	f.b.WriteByte('[')
	f.blockStart = true
}

func (f *JSONFactory) StartSequenceItem(index uint32) {
	f.comma()
	f.b.WriteByte('{')
	f.blockStart = true
}

func (f *JSONFactory) StopSequenceItem() {
	f.b.WriteByte('}')
	f.blockStart = false
}

func (f *JSONFactory) StopSequence() {
	f.b.WriteByte(']')
	f.blockStart = false
}

func (f *JSONFactory) StartGroup(name string) {
	f.key(name)
	f.b.WriteByte('{')
	f.blockStart = true
}

func (f *JSONFactory) StopGroup() {
	f.b.WriteByte('}')
	f.blockStart = false
}

func (f *JSONFactory) StartTemplateRef(name string, dynamic bool) {
	f.dynamic = append(f.dynamic, dynamic)
	if dynamic {
		f.key("TemplateReference")
		f.b.WriteByte('{')
		f.b.WriteString(strconv.Quote(name))
		f.b.WriteString(":{")
		f.blockStart = true
	}
}

func (f *JSONFactory) StopTemplateRef() {
	dynamic := f.dynamic[len(f.dynamic)-1]
	f.dynamic = f.dynamic[:len(f.dynamic)-1]
	if dynamic {
		f.b.WriteString("}}")
		f.blockStart = false
	}
}
