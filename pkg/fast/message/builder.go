package message

import "fastcodec/pkg/fast"

// Builder is a fast.MessageFactory that materializes decode events into a
// Message tree. One Builder can decode many messages; Message returns the
// most recently completed one.
type Builder struct {
	msg    Message
	frames []*[]Field
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// Message returns the last fully decoded message.
func (b *Builder) Message() *Message { return &b.msg }

func (b *Builder) current() *[]Field { return b.frames[len(b.frames)-1] }

func (b *Builder) pushFrame(f *[]Field) { b.frames = append(b.frames, f) }

func (b *Builder) popFrame() { b.frames = b.frames[:len(b.frames)-1] }

// lastField returns the most recently appended field of the current frame.
func (b *Builder) lastField() *Field {
	fields := b.current()
	return &(*fields)[len(*fields)-1]
}

func (b *Builder) StartTemplate(id uint32, name string) {
	b.msg = Message{TemplateID: id, Name: name}
	b.frames = b.frames[:0]
	b.pushFrame(&b.msg.Fields)
}

func (b *Builder) StopTemplate() { b.popFrame() }

func (b *Builder) SetValue(id uint32, name string, value fast.Value) {
	fields := b.current()
	*fields = append(*fields, Field{ID: id, Name: name, Kind: KindScalar, Value: value})
}

func (b *Builder) StartSequence(id uint32, name string, length uint32) {
	fields := b.current()
	*fields = append(*fields, Field{
		ID:    id,
		Name:  name,
		Kind:  KindSequence,
		Items: make([][]Field, 0, length),
	})
}

func (b *Builder) StartSequenceItem(index uint32) {
	seq := b.lastField()
	seq.Items = append(seq.Items, nil)
	b.pushFrame(&seq.Items[len(seq.Items)-1])
}

func (b *Builder) StopSequenceItem() { b.popFrame() }

func (b *Builder) StopSequence() {}

func (b *Builder) StartGroup(name string) {
	fields := b.current()
	*fields = append(*fields, Field{Name: name, Kind: KindGroup})
	b.pushFrame(&b.lastField().Fields)
}

func (b *Builder) StopGroup() { b.popFrame() }

func (b *Builder) StartTemplateRef(name string, dynamic bool) {
	fields := b.current()
	*fields = append(*fields, Field{
		Name:     name,
		Kind:     KindTemplateRef,
		Template: name,
		Dynamic:  dynamic,
	})
	b.pushFrame(&b.lastField().Fields)
}

func (b *Builder) StopTemplateRef() { b.popFrame() }
