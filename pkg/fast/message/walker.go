package message

import (
	"fmt"

	"fastcodec/pkg/fast"
)

// Walker is a fast.MessageVisitor that feeds a Message tree back through an
// encoder. The encoder asks for fields in template order; the walker resolves
// them by name within the currently open structure.
type Walker struct {
	msg    *Message
	frames []walkFrame
}

type walkFrame struct {
	fields []Field
	seq    *Field // open sequence, when inside one
}

// NewWalker creates a walker over msg.
func NewWalker(msg *Message) *Walker {
	return &Walker{msg: msg, frames: []walkFrame{{fields: msg.Fields}}}
}

func (w *Walker) current() *walkFrame { return &w.frames[len(w.frames)-1] }

func (w *Walker) pushFrame(f walkFrame) { w.frames = append(w.frames, f) }

func (w *Walker) popFrame() { w.frames = w.frames[:len(w.frames)-1] }

func (w *Walker) TemplateName() (string, error) {
	if w.msg.Name == "" {
		return "", fmt.Errorf("message has no template name")
	}
	return w.msg.Name, nil
}

func (w *Walker) GetValue(name string) (fast.Value, error) {
	f := fieldByName(w.current().fields, name)
	if f == nil {
		// Absent optional field; the encoder validates presence.
		return nil, nil
	}
	if f.Kind != KindScalar {
		return nil, fmt.Errorf("field %q is not a scalar", name)
	}
	return f.Value, nil
}

func (w *Walker) SelectGroup(name string) (bool, error) {
	f := fieldByName(w.current().fields, name)
	if f == nil {
		return false, nil
	}
	if f.Kind != KindGroup {
		return false, fmt.Errorf("field %q is not a group", name)
	}
	w.pushFrame(walkFrame{fields: f.Fields})
	return true, nil
}

func (w *Walker) ReleaseGroup() error {
	w.popFrame()
	return nil
}

func (w *Walker) SelectSequence(name string) (int, bool, error) {
	f := fieldByName(w.current().fields, name)
	if f == nil {
		return 0, false, nil
	}
	if f.Kind != KindSequence {
		return 0, false, fmt.Errorf("field %q is not a sequence", name)
	}
	w.pushFrame(walkFrame{seq: f})
	return len(f.Items), true, nil
}

func (w *Walker) SelectSequenceItem(index int) error {
	seq := w.current().seq
	if seq == nil {
		return fmt.Errorf("no open sequence")
	}
	if index < 0 || index >= len(seq.Items) {
		return fmt.Errorf("sequence %q has no item %d", seq.Name, index)
	}
	w.pushFrame(walkFrame{fields: seq.Items[index]})
	return nil
}

func (w *Walker) ReleaseSequenceItem() error {
	w.popFrame()
	return nil
}

func (w *Walker) ReleaseSequence() error {
	w.popFrame()
	return nil
}

func (w *Walker) SelectTemplateRef(name string, dynamic bool) (string, error) {
	var f *Field
	if dynamic {
		// The encoder does not know the target; take the first reference.
		for i := range w.current().fields {
			if w.current().fields[i].Kind == KindTemplateRef {
				f = &w.current().fields[i]
				break
			}
		}
	} else {
		f = fieldByName(w.current().fields, name)
	}
	if f == nil || f.Kind != KindTemplateRef {
		return "", fmt.Errorf("message has no template reference %q", name)
	}
	w.pushFrame(walkFrame{fields: f.Fields})
	return f.Template, nil
}

func (w *Walker) ReleaseTemplateRef() error {
	w.popFrame()
	return nil
}
