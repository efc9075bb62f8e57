package fast_test

import (
	"fmt"
	"io"
	"os"
	"testing"

	"fastcodec/pkg/fast"
)

// chunkReader is a plain io.Reader (no ReadByte method) so stream decoding
// exercises the byte-at-a-time adapter.
type chunkReader struct{ data []byte }

func newChunkReader(data []byte) *chunkReader { return &chunkReader{data: data} }

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.data)
	c.data = c.data[n:]
	return n, nil
}

// loggingFactory records every decode callback as a formatted line, so tests
// can assert whole event sequences at once.
type loggingFactory struct {
	calls []string
}

func fmtValue(v fast.Value) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case fast.UInt32:
		return fmt.Sprintf("UInt32(%d)", uint32(x))
	case fast.Int32:
		return fmt.Sprintf("Int32(%d)", int32(x))
	case fast.UInt64:
		return fmt.Sprintf("UInt64(%d)", uint64(x))
	case fast.Int64:
		return fmt.Sprintf("Int64(%d)", int64(x))
	case fast.Decimal:
		return fmt.Sprintf("Decimal(%d,%d)", x.Exponent, x.Mantissa)
	case fast.ASCIIString:
		return fmt.Sprintf("ASCIIString(%q)", string(x))
	case fast.UnicodeString:
		return fmt.Sprintf("UnicodeString(%q)", string(x))
	case fast.Bytes:
		return fmt.Sprintf("Bytes(%s)", x.String())
	}
	return "?"
}

func (f *loggingFactory) StartTemplate(id uint32, name string) {
	f.calls = append(f.calls, fmt.Sprintf("start_template: %d:%s", id, name))
}

func (f *loggingFactory) StopTemplate() {
	f.calls = append(f.calls, "stop_template")
}

func (f *loggingFactory) SetValue(id uint32, name string, value fast.Value) {
	f.calls = append(f.calls, fmt.Sprintf("set_value: %d:%s %s", id, name, fmtValue(value)))
}

func (f *loggingFactory) StartSequence(id uint32, name string, length uint32) {
	f.calls = append(f.calls, fmt.Sprintf("start_sequence: %d:%s %d", id, name, length))
}

func (f *loggingFactory) StartSequenceItem(index uint32) {
	f.calls = append(f.calls, fmt.Sprintf("start_sequence_item: %d", index))
}

func (f *loggingFactory) StopSequenceItem() {
	f.calls = append(f.calls, "stop_sequence_item")
}

func (f *loggingFactory) StopSequence() {
	f.calls = append(f.calls, "stop_sequence")
}

func (f *loggingFactory) StartGroup(name string) {
	f.calls = append(f.calls, fmt.Sprintf("start_group: %s", name))
}

func (f *loggingFactory) StopGroup() {
	f.calls = append(f.calls, "stop_group")
}

func (f *loggingFactory) StartTemplateRef(name string, dynamic bool) {
	f.calls = append(f.calls, fmt.Sprintf("start_template_ref: %s:%v", name, dynamic))
}

func (f *loggingFactory) StopTemplateRef() {
	f.calls = append(f.calls, "stop_template_ref")
}

func loadTemplates(t *testing.T, file string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + file)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newTestDecoder(t *testing.T, file string) *fast.Decoder {
	t.Helper()
	d, err := fast.NewDecoderFromXML(loadTemplates(t, file))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newTestEncoder(t *testing.T, file string) *fast.Encoder {
	t.Helper()
	e, err := fast.NewEncoderFromXML(loadTemplates(t, file))
	if err != nil {
		t.Fatal(err)
	}
	return e
}
