// Package message materializes decoded FAST messages into a generic field
// tree and walks such trees back through the encoder, so callers can decode
// and encode without writing their own factory or visitor.
package message

import (
	"fastcodec/pkg/fast"
)

// FieldKind tags the variants of a Field.
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindGroup
	KindSequence
	KindTemplateRef
)

// Field is one decoded field or structure, in template declaration order.
type Field struct {
	ID   uint32
	Name string
	Kind FieldKind

	// Value holds a scalar's value; nil means the optional field is absent.
	Value fast.Value

	// Fields holds a group's or an inlined template reference's members.
	Fields []Field

	// Items holds a sequence's items, one field list per item.
	Items [][]Field

	// Template and Dynamic describe a template reference.
	Template string
	Dynamic  bool
}

// Message is one decoded top-level message.
type Message struct {
	TemplateID uint32
	Name       string
	Fields     []Field
}

// fieldByName returns the first field with the given name, walking only the
// given level.
func fieldByName(fields []Field, name string) *Field {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

// ToMap converts the message to a generic map keyed by field name. Sequences
// become []any of maps, groups nested maps, decimals float64, byte vectors
// []byte. Absent optional fields are omitted. Dynamic template references
// nest under their template name.
func (m *Message) ToMap() map[string]any {
	return fieldsToMap(m.Fields)
}

func fieldsToMap(fields []Field) map[string]any {
	out := make(map[string]any, len(fields))
	for i := range fields {
		f := &fields[i]
		switch f.Kind {
		case KindScalar:
			if f.Value == nil {
				continue
			}
			out[f.Name] = scalarToAny(f.Value)
		case KindGroup:
			out[f.Name] = fieldsToMap(f.Fields)
		case KindSequence:
			items := make([]any, 0, len(f.Items))
			for _, item := range f.Items {
				items = append(items, fieldsToMap(item))
			}
			out[f.Name] = items
		case KindTemplateRef:
			if f.Dynamic {
				out[f.Template] = fieldsToMap(f.Fields)
			} else {
				for k, v := range fieldsToMap(f.Fields) {
					out[k] = v
				}
			}
		}
	}
	return out
}

func scalarToAny(v fast.Value) any {
	switch x := v.(type) {
	case fast.UInt32:
		return uint64(x)
	case fast.Int32:
		return int64(x)
	case fast.UInt64:
		return uint64(x)
	case fast.Int64:
		return int64(x)
	case fast.Decimal:
		return x.Float64()
	case fast.ASCIIString:
		return string(x)
	case fast.UnicodeString:
		return string(x)
	case fast.Bytes:
		return []byte(x)
	}
	return nil
}
