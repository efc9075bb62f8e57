package message

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"fastcodec/pkg/fast"
)

// buildSample replays a decode event sequence into a builder.
func buildSample() *Message {
	b := NewBuilder()
	b.StartTemplate(5, "Quotes")
	b.SetValue(1, "Symbol", fast.ASCIIString("GEH6"))
	b.SetValue(2, "Missing", nil)
	b.StartSequence(0, "Entries", 2)
	b.StartSequenceItem(0)
	b.SetValue(3, "Px", fast.NewDecimal(-2, 942755))
	b.SetValue(4, "Qty", fast.UInt32(10))
	b.StopSequenceItem()
	b.StartSequenceItem(1)
	b.SetValue(3, "Px", fast.NewDecimal(-2, 942761))
	b.SetValue(4, "Qty", fast.UInt32(20))
	b.StopSequenceItem()
	b.StopSequence()
	b.StartGroup("Venue")
	b.SetValue(5, "MIC", fast.ASCIIString("XCME"))
	b.StopGroup()
	b.StopTemplate()
	return b.Message()
}

func TestBuilderShape(t *testing.T) {
	m := buildSample()
	if m.TemplateID != 5 || m.Name != "Quotes" {
		t.Fatalf("header: %+v", m)
	}
	if len(m.Fields) != 4 {
		t.Fatalf("fields: %d", len(m.Fields))
	}
	seq := fieldByName(m.Fields, "Entries")
	if seq == nil || seq.Kind != KindSequence || len(seq.Items) != 2 {
		t.Fatalf("sequence: %+v", seq)
	}
	if px := fieldByName(seq.Items[1], "Px"); px.Value.(fast.Decimal).Mantissa != 942761 {
		t.Fatalf("item 1 Px: %+v", px)
	}
	if g := fieldByName(m.Fields, "Venue"); g.Kind != KindGroup || len(g.Fields) != 1 {
		t.Fatalf("group: %+v", g)
	}
}

func TestWalkerMirrorsBuilder(t *testing.T) {
	m := buildSample()
	w := NewWalker(m)

	name, err := w.TemplateName()
	if err != nil || name != "Quotes" {
		t.Fatalf("template: %q, %v", name, err)
	}
	if v, _ := w.GetValue("Symbol"); v.(fast.ASCIIString) != "GEH6" {
		t.Fatalf("Symbol: %v", v)
	}
	if v, err := w.GetValue("Missing"); err != nil || v != nil {
		t.Fatalf("Missing: %v, %v", v, err)
	}
	if v, err := w.GetValue("Unknown"); err != nil || v != nil {
		t.Fatalf("Unknown: %v, %v", v, err)
	}

	n, present, err := w.SelectSequence("Entries")
	if err != nil || !present || n != 2 {
		t.Fatalf("sequence: %d, %v, %v", n, present, err)
	}
	for i := 0; i < n; i++ {
		if err := w.SelectSequenceItem(i); err != nil {
			t.Fatal(err)
		}
		if v, _ := w.GetValue("Qty"); v.(fast.UInt32) != fast.UInt32(10*(i+1)) {
			t.Fatalf("item %d Qty: %v", i, v)
		}
		if err := w.ReleaseSequenceItem(); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.ReleaseSequence(); err != nil {
		t.Fatal(err)
	}

	present, err = w.SelectGroup("Venue")
	if err != nil || !present {
		t.Fatalf("group: %v, %v", present, err)
	}
	if v, _ := w.GetValue("MIC"); v.(fast.ASCIIString) != "XCME" {
		t.Fatalf("MIC: %v", v)
	}
	if err := w.ReleaseGroup(); err != nil {
		t.Fatal(err)
	}

	if present, _ := w.SelectGroup("NoSuchGroup"); present {
		t.Fatalf("phantom group selected")
	}
}

func TestToMap(t *testing.T) {
	m := buildSample()
	got := m.ToMap()
	want := map[string]any{
		"Symbol": "GEH6",
		"Entries": []any{
			map[string]any{"Px": 9427.55, "Qty": uint64(10)},
			map[string]any{"Px": 9427.61, "Qty": uint64(20)},
		},
		"Venue": map[string]any{"MIC": "XCME"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestToMapStaticRefInlines(t *testing.T) {
	b := NewBuilder()
	b.StartTemplate(1, "Msg")
	b.StartTemplateRef("Header", false)
	b.SetValue(1, "SeqNum", fast.UInt32(7))
	b.StopTemplateRef()
	b.StopTemplate()
	got := b.Message().ToMap()
	if got["SeqNum"] != uint64(7) {
		t.Fatalf("static ref not inlined: %v", got)
	}

	b.StartTemplate(1, "Msg")
	b.StartTemplateRef("Header", true)
	b.SetValue(1, "SeqNum", fast.UInt32(7))
	b.StopTemplateRef()
	b.StopTemplate()
	got = b.Message().ToMap()
	inner, ok := got["Header"].(map[string]any)
	if !ok || inner["SeqNum"] != uint64(7) {
		t.Fatalf("dynamic ref not nested: %v", got)
	}
}

func TestToStruct(t *testing.T) {
	b := NewBuilder()
	b.StartTemplate(1, "Msg")
	b.SetValue(1, "Qty", fast.UInt32(10))
	b.SetValue(2, "Raw", fast.Bytes{0xc1})
	b.StopTemplate()
	s, err := b.Message().ToStruct()
	if err != nil {
		t.Fatal(err)
	}
	body := s.Fields["Msg"].GetStructValue()
	if body.Fields["Qty"].GetNumberValue() != 10 {
		t.Fatalf("Qty: %v", body)
	}
	if body.Fields["Raw"].GetStringValue() != "c1" {
		t.Fatalf("Raw: %v", body)
	}
}
