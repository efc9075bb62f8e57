// Package text provides message factories that render decoded FAST messages
// as human-readable text or JSON.
package text

import (
	"fmt"
	"strings"

	"fastcodec/pkg/fast"
)

// Factory formats one decoded message as Name=<f1=v1|f2=v2|...> with nested
// angle-bracket blocks for groups, sequence items, and dynamic references.
// The factory resets itself when a new template starts.
type Factory struct {
	b          strings.Builder
	blockStart bool
	dynamic    []bool
}

// NewFactory creates an empty text factory.
func NewFactory() *Factory { return &Factory{} }

// Text returns the rendered form of the last decoded message.
func (f *Factory) Text() string { return f.b.String() }

func (f *Factory) reset() {
	f.b.Reset()
	f.blockStart = false
	f.dynamic = f.dynamic[:0]
}

func (f *Factory) delimiter() {
	if f.blockStart {
		f.blockStart = false
		return
	}
	f.b.WriteByte('|')
}

func (f *Factory) StartTemplate(id uint32, name string) {
	f.reset()
	f.b.WriteString(name)
	f.b.WriteString("=<")
	f.blockStart = true
}

func (f *Factory) StopTemplate() { f.b.WriteByte('>') }

func (f *Factory) SetValue(id uint32, name string, value fast.Value) {
	if value == nil {
		return
	}
	f.delimiter()
	fmt.Fprintf(&f.b, "%s=%s", name, value.String())
}

func (f *Factory) StartSequence(id uint32, name string, length uint32) {
	f.delimiter()
	f.b.WriteString(name)
	f.b.WriteByte('=')
}

func (f *Factory) StartSequenceItem(index uint32) {
	f.b.WriteByte('<')
	f.blockStart = true
}

func (f *Factory) StopSequenceItem() { f.b.WriteByte('>') }

func (f *Factory) StopSequence() { f.blockStart = false }

func (f *Factory) StartGroup(name string) {
	f.delimiter()
	f.b.WriteString(name)
	f.b.WriteString("=<")
	f.blockStart = true
}

func (f *Factory) StopGroup() {
	f.b.WriteByte('>')
	f.blockStart = false
}

func (f *Factory) StartTemplateRef(name string, dynamic bool) {
	f.dynamic = append(f.dynamic, dynamic)
	if dynamic {
		f.delimiter()
		fmt.Fprintf(&f.b, "TemplateReference=<%s=<", name)
		f.blockStart = true
	}
}

func (f *Factory) StopTemplateRef() {
	dynamic := f.dynamic[len(f.dynamic)-1]
	f.dynamic = f.dynamic[:len(f.dynamic)-1]
	if dynamic {
		f.b.WriteString(">>")
	}
}
