package fast

// MessageFactory receives decode events. Calls arrive in template declaration
// order; every Start has a matching Stop. A nil value passed to SetValue
// means the optional field is absent.
type MessageFactory interface {
	// StartTemplate is called when processing of a top-level template begins.
	StartTemplate(id uint32, name string)
	// StopTemplate closes the template opened by StartTemplate.
	StopTemplate()

	// SetValue reports one decoded field.
	SetValue(id uint32, name string, value Value)

	// StartSequence is called before the items of a present sequence.
	StartSequence(id uint32, name string, length uint32)
	// StartSequenceItem is called before each item's fields.
	StartSequenceItem(index uint32)
	StopSequenceItem()
	StopSequence()

	// StartGroup is called when a present group begins.
	StartGroup(name string)
	StopGroup()

	// StartTemplateRef is called for template references; name is the target
	// template and dynamic reports whether the target was chosen on the wire.
	StartTemplateRef(name string, dynamic bool)
	StopTemplateRef()
}

// MessageVisitor supplies encode input. The encoder walks the active template
// and asks the visitor for each field in declaration order.
type MessageVisitor interface {
	// TemplateName names the template to encode the current message with.
	TemplateName() (string, error)

	// GetValue returns the value for the named field, or nil when absent.
	GetValue(name string) (Value, error)

	// SelectGroup enters the named group; false means the group is absent.
	SelectGroup(name string) (bool, error)
	ReleaseGroup() error

	// SelectSequence enters the named sequence and returns its length;
	// present is false when an optional sequence is absent.
	SelectSequence(name string) (length int, present bool, err error)
	SelectSequenceItem(index int) error
	ReleaseSequenceItem() error
	ReleaseSequence() error

	// SelectTemplateRef enters a template reference. For a dynamic reference
	// the visitor returns the target template's name.
	SelectTemplateRef(name string, dynamic bool) (string, error)
	ReleaseTemplateRef() error
}
