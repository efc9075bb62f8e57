package fast

import (
	"fmt"
	"io"
)

// Encoder encodes messages supplied by a MessageVisitor against a compiled
// template set. Dictionary state persists across messages until Reset. An
// Encoder is not safe for concurrent use.
type Encoder struct {
	set  *templateSet
	dict Dictionary
}

// NewEncoderFromXML compiles a template definition document into an encoder.
func NewEncoderFromXML(templates []byte) (*Encoder, error) {
	set, err := newTemplateSetFromXML(templates)
	if err != nil {
		return nil, err
	}
	return &Encoder{set: set, dict: newDictionary()}, nil
}

// Reset returns every dictionary entry to the undefined state.
func (e *Encoder) Reset() { e.dict.Reset() }

// Encode encodes one message and returns its wire bytes.
func (e *Encoder) Encode(src MessageVisitor) ([]byte, error) {
	s := encoderState{
		scopeState: newScopeState(&e.dict),
		set:        e.set,
		msg:        src,
	}
	return s.encodeMessage()
}

// EncodeWriter encodes one message onto w.
func (e *Encoder) EncodeWriter(w io.Writer, src MessageVisitor) error {
	out, err := e.Encode(src)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// encoderState drives one message's descent. Segment bodies are buffered in
// per-scope Writers so each presence map can be trimmed and emitted ahead of
// the body it describes.
type encoderState struct {
	scopeState
	set   *templateSet
	msg   MessageVisitor
	pmaps stack[presenceMap]
}

func (s *encoderState) pmapSetNext(bit bool) { s.pmaps.top().setNext(bit) }

func (s *encoderState) encodeMessage() ([]byte, error) {
	name, err := s.msg.TemplateName()
	if err != nil {
		return nil, err
	}
	t, ok := s.set.byName[name]
	if !ok {
		return nil, dynamicErrf("unknown template name %q", name)
	}

	s.pmaps.push(newPresenceMap())
	body := &Writer{}
	if err := s.encodeTemplateID(body, t.ID); err != nil {
		return nil, err
	}
	hasDict := s.pushScope(t.dictionary)
	hasType := s.pushTypeRef(t.typeRef)
	if err := s.encodeInstructions(body, t.instructions); err != nil {
		return nil, err
	}
	if hasDict {
		s.popScope()
	}
	if hasType {
		s.popTypeRef()
	}
	s.templateID.pop()

	out := &Writer{}
	if err := s.emitPmap(out); err != nil {
		return nil, err
	}
	out.WriteRaw(body.Bytes())
	return out.Bytes(), nil
}

// emitPmap pops the current presence map and writes its trimmed form.
func (s *encoderState) emitPmap(w *Writer) error {
	pm := s.pmaps.pop()
	return w.WritePresenceMap(pm.bitmap, pm.size)
}

// encodeTemplateID runs the synthetic copy-operator field carrying the
// template id and makes the id current for template-scoped dictionaries.
func (s *encoderState) encodeTemplateID(w *Writer, id uint32) error {
	s.templateID.push(id)
	return s.inject(w, s.set.templateIDField, UInt32(id))
}

func (s *encoderState) encodeInstructions(w *Writer, ins []*Instruction) error {
	for _, in := range ins {
		var err error
		switch in.Type {
		case TypeSequence:
			err = s.encodeSequence(w, in)
		case TypeGroup:
			err = s.encodeGroup(w, in)
		case TypeTemplateRef:
			err = s.encodeTemplateRef(w, in)
		default:
			err = s.encodeField(w, in)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *encoderState) encodeField(w *Writer, in *Instruction) error {
	v, err := s.msg.GetValue(in.Name)
	if err != nil {
		return err
	}
	return s.inject(w, in, v)
}

// encodeSegment buffers a nested scope's body so its presence map can be
// emitted first.
func (s *encoderState) encodeSegment(w *Writer, ins []*Instruction) error {
	s.pmaps.push(newPresenceMap())
	body := &Writer{}
	if err := s.encodeInstructions(body, ins); err != nil {
		return err
	}
	if err := s.emitPmap(w); err != nil {
		return err
	}
	w.WriteRaw(body.Bytes())
	return nil
}

func (s *encoderState) encodeGroup(w *Writer, in *Instruction) error {
	present, err := s.msg.SelectGroup(in.Name)
	if err != nil {
		return err
	}
	if !present {
		if in.isOptional() {
			s.pmapSetNext(false)
			return nil
		}
		return dynamicErrf("missing mandatory group %q", in.Name)
	}
	if in.isOptional() {
		s.pmapSetNext(true)
	}
	hasDict := s.pushScope(in.dictionary)
	hasType := s.pushTypeRef(in.typeRef)
	if in.hasPmap {
		err = s.encodeSegment(w, in.Children)
	} else {
		err = s.encodeInstructions(w, in.Children)
	}
	if err != nil {
		return err
	}
	if hasDict {
		s.popScope()
	}
	if hasType {
		s.popTypeRef()
	}
	return s.msg.ReleaseGroup()
}

func (s *encoderState) encodeSequence(w *Writer, in *Instruction) error {
	length, present, err := s.msg.SelectSequence(in.Name)
	if err != nil {
		return err
	}
	lengthField := in.Children[0]
	hasDict := s.pushScope(in.dictionary)
	hasType := s.pushTypeRef(in.typeRef)
	defer func() {
		if hasDict {
			s.popScope()
		}
		if hasType {
			s.popTypeRef()
		}
	}()

	if !present {
		if !in.isOptional() {
			return dynamicErrf("missing mandatory sequence %q", in.Name)
		}
		return s.inject(w, lengthField, nil)
	}
	if err := s.inject(w, lengthField, UInt32(length)); err != nil {
		return err
	}
	for idx := 0; idx < length; idx++ {
		if err := s.msg.SelectSequenceItem(idx); err != nil {
			return err
		}
		if in.hasPmap {
			err = s.encodeSegment(w, in.Children[1:])
		} else {
			err = s.encodeInstructions(w, in.Children[1:])
		}
		if err != nil {
			return err
		}
		if err := s.msg.ReleaseSequenceItem(); err != nil {
			return err
		}
	}
	return s.msg.ReleaseSequence()
}

func (s *encoderState) encodeTemplateRef(w *Writer, in *Instruction) error {
	if in.Name != "" {
		// Static reference: inline into the current segment.
		if _, err := s.msg.SelectTemplateRef(in.Name, false); err != nil {
			return err
		}
		t, ok := s.set.byName[in.Name]
		if !ok {
			return dynamicErrf("referenced template %q not found", in.Name)
		}
		hasDict := s.pushScope(t.dictionary)
		hasType := s.pushTypeRef(t.typeRef)
		if err := s.encodeInstructions(w, t.instructions); err != nil {
			return err
		}
		if hasDict {
			s.popScope()
		}
		if hasType {
			s.popTypeRef()
		}
		return s.msg.ReleaseTemplateRef()
	}

	// Dynamic reference: a nested message with its own presence map and
	// template id chosen by the visitor.
	name, err := s.msg.SelectTemplateRef("", true)
	if err != nil {
		return err
	}
	if name == "" {
		return dynamicErrf("missing template reference target")
	}
	t, ok := s.set.byName[name]
	if !ok {
		return dynamicErrf("unknown template name %q", name)
	}
	s.pmaps.push(newPresenceMap())
	body := &Writer{}
	if err := s.encodeTemplateID(body, t.ID); err != nil {
		return err
	}
	hasDict := s.pushScope(t.dictionary)
	hasType := s.pushTypeRef(t.typeRef)
	if err := s.encodeInstructions(body, t.instructions); err != nil {
		return err
	}
	if hasDict {
		s.popScope()
	}
	if hasType {
		s.popTypeRef()
	}
	s.templateID.pop()
	if err := s.emitPmap(w); err != nil {
		return err
	}
	w.WriteRaw(body.Bytes())
	return s.msg.ReleaseTemplateRef()
}

// inject runs one field's operator state machine on an application value and
// appends its wire form, updating the presence map and dictionary.
func (s *encoderState) inject(w *Writer, in *Instruction, value Value) error {
	if value == nil && !in.isOptional() {
		return dynamicErrf("mandatory field %q has no value", in.Name)
	}
	switch in.Operator {
	case OpNone:
		return s.write(w, in, value)

	case OpConstant:
		if value != nil && !valuesEqual(in.Initial, value) {
			return dynamicErrf("constant field %q has the wrong value", in.Name)
		}
		if in.isOptional() {
			s.pmapSetNext(value != nil)
		}
		return nil

	case OpDefault:
		if valuesEqual(in.Initial, value) {
			s.pmapSetNext(false)
			return nil
		}
		s.pmapSetNext(true)
		return s.write(w, in, value)

	case OpCopy:
		e, defined, err := s.ctxGet(in)
		if err != nil {
			return err
		}
		prev := e.value
		if !defined {
			s.ctxSet(in, in.Initial)
			prev = in.Initial
		}
		if valuesEqual(prev, value) {
			s.pmapSetNext(false)
			return nil
		}
		s.pmapSetNext(true)
		s.ctxSet(in, value)
		return s.write(w, in, value)

	case OpIncrement:
		e, defined, err := s.ctxGet(in)
		if err != nil {
			return err
		}
		prev := in.Initial
		if defined {
			prev = e.value
		}
		var next Value
		if prev != nil {
			if next, err = applyIncrement(prev); err != nil {
				return err
			}
		}
		s.ctxSet(in, value)
		if valuesEqual(next, value) {
			s.pmapSetNext(false)
			return nil
		}
		s.pmapSetNext(true)
		return s.write(w, in, value)

	case OpDelta:
		if value == nil {
			return s.writeDelta(w, in, nil, 0, false)
		}
		base, err := s.deltaBaseEncode(in)
		if err != nil {
			return err
		}
		delta, sub, err := findDelta(value, base)
		if err != nil {
			return err
		}
		s.ctxSet(in, value)
		return s.writeDelta(w, in, delta, sub, true)

	case OpTail:
		e, defined, err := s.ctxGet(in)
		if err != nil {
			return err
		}
		prev := in.Initial
		if defined {
			prev = e.value
		}
		if valuesEqual(prev, value) {
			s.pmapSetNext(false)
			s.ctxSet(in, value)
			return nil
		}
		var tail Value
		present := false
		if value != nil {
			s.ctxSet(in, value)
			base := prev
			if base == nil {
				if base, err = in.Type.defaultValue(); err != nil {
					return err
				}
			}
			if tail, err = findTail(value, base); err != nil {
				return err
			}
			present = true
		}
		s.pmapSetNext(true)
		return s.writeTail(w, in, tail, present)
	}
	return dynamicErrf("field %q has unknown operator", in.Name)
}

// deltaBaseEncode resolves the base a delta is computed against.
func (s *encoderState) deltaBaseEncode(in *Instruction) (Value, error) {
	e, defined, err := s.ctxGet(in)
	if err != nil {
		return nil, err
	}
	if defined {
		if e.value == nil {
			return nil, fmt.Errorf("%w: delta field %q", ErrMissingPreviousValue, in.Name)
		}
		return e.value, nil
	}
	if in.Initial != nil {
		return in.Initial, nil
	}
	return in.Type.defaultValue()
}

// write emits a plain value of the instruction's type, honoring the null
// convention for nullable fields.
func (s *encoderState) write(w *Writer, in *Instruction, value Value) error {
	present := value != nil
	switch in.Type {
	case TypeUInt32, TypeLength:
		var v uint64
		if present {
			u, ok := value.(UInt32)
			if !ok {
				return dynamicErrf("field %q must have a uInt32 value, got %T", in.Name, value)
			}
			v = uint64(u)
		}
		return s.writeUIntField(w, in, v, present)
	case TypeUInt64:
		var v uint64
		if present {
			u, ok := value.(UInt64)
			if !ok {
				return dynamicErrf("field %q must have a uInt64 value, got %T", in.Name, value)
			}
			v = uint64(u)
		}
		return s.writeUIntField(w, in, v, present)
	case TypeInt32:
		var v int64
		if present {
			i, ok := value.(Int32)
			if !ok {
				return dynamicErrf("field %q must have an int32 value, got %T", in.Name, value)
			}
			v = int64(i)
		}
		return s.writeIntField(w, in, v, present)
	case TypeExponent:
		var v int64
		if present {
			i, ok := value.(Int32)
			if !ok {
				return dynamicErrf("field %q must have an int32 exponent, got %T", in.Name, value)
			}
			if i < minExponent || i > maxExponent {
				return dynamicErrf("exponent %d out of range", i)
			}
			v = int64(i)
		}
		return s.writeIntField(w, in, v, present)
	case TypeInt64, TypeMantissa:
		var v int64
		if present {
			i, ok := value.(Int64)
			if !ok {
				return dynamicErrf("field %q must have an int64 value, got %T", in.Name, value)
			}
			v = int64(i)
		}
		return s.writeIntField(w, in, v, present)
	case TypeDecimal:
		if !present {
			// A null decimal is a null exponent; the mantissa is omitted.
			return s.inject(w, in.Children[0], nil)
		}
		d, ok := value.(Decimal)
		if !ok {
			return dynamicErrf("field %q must have a decimal value, got %T", in.Name, value)
		}
		if err := s.inject(w, in.Children[0], Int32(d.Exponent)); err != nil {
			return err
		}
		return s.inject(w, in.Children[1], Int64(d.Mantissa))
	case TypeASCIIString:
		var v string
		if present {
			str, ok := stringValue(value)
			if !ok {
				return dynamicErrf("field %q must have a string value, got %T", in.Name, value)
			}
			v = str
		}
		return s.writeASCIIField(w, in, v, present)
	case TypeUnicodeString:
		var v string
		if present {
			str, ok := stringValue(value)
			if !ok {
				return dynamicErrf("field %q must have a string value, got %T", in.Name, value)
			}
			v = str
		}
		return s.writeUnicodeField(w, in, v, present)
	case TypeBytes:
		var v []byte
		if present {
			b, ok := value.(Bytes)
			if !ok {
				return dynamicErrf("field %q must have a byteVector value, got %T", in.Name, value)
			}
			v = b
		}
		return s.writeBytesField(w, in, v, present)
	}
	return dynamicErrf("cannot write %s field %q", in.Type, in.Name)
}

func stringValue(v Value) (string, bool) {
	switch s := v.(type) {
	case ASCIIString:
		return string(s), true
	case UnicodeString:
		return string(s), true
	}
	return "", false
}

// writeDelta emits a field's wire delta: the signed difference for numeric
// types, or a subtraction length plus suffix for vector types.
func (s *encoderState) writeDelta(w *Writer, in *Instruction, delta Value, sub int32, present bool) error {
	if in.Type.isInteger() {
		var v int64
		if present {
			v = int64(delta.(Int64))
		}
		return s.writeIntField(w, in, v, present)
	}
	if !present {
		return s.writeIntField(w, in, 0, false)
	}
	if err := s.writeIntField(w, in, int64(sub), true); err != nil {
		return err
	}
	switch d := delta.(type) {
	case ASCIIString:
		return s.writeASCIIField(w, in, string(d), true)
	case Bytes:
		return s.writeBytesField(w, in, d, true)
	}
	return dynamicErrf("field %q has malformed delta", in.Name)
}

func (s *encoderState) writeTail(w *Writer, in *Instruction, tail Value, present bool) error {
	switch in.Type {
	case TypeASCIIString:
		var v string
		if present {
			v = string(tail.(ASCIIString))
		}
		return s.writeASCIIField(w, in, v, present)
	case TypeUnicodeString, TypeBytes:
		var v []byte
		if present {
			v = []byte(tail.(Bytes))
		}
		return s.writeBytesField(w, in, v, present)
	}
	return dynamicErrf("tail is not applicable to %s field %q", in.Type, in.Name)
}

func (s *encoderState) writeUIntField(w *Writer, in *Instruction, v uint64, present bool) error {
	if in.isNullable() {
		w.WriteUIntNullable(v, present)
		return nil
	}
	if !present {
		return dynamicErrf("mandatory field %q has no value", in.Name)
	}
	w.WriteUInt(v)
	return nil
}

func (s *encoderState) writeIntField(w *Writer, in *Instruction, v int64, present bool) error {
	if in.isNullable() {
		w.WriteIntNullable(v, present)
		return nil
	}
	if !present {
		return dynamicErrf("mandatory field %q has no value", in.Name)
	}
	w.WriteInt(v)
	return nil
}

func (s *encoderState) writeASCIIField(w *Writer, in *Instruction, v string, present bool) error {
	if in.isNullable() {
		return w.WriteASCIIStringNullable(v, present)
	}
	if !present {
		return dynamicErrf("mandatory field %q has no value", in.Name)
	}
	return w.WriteASCIIString(v)
}

func (s *encoderState) writeUnicodeField(w *Writer, in *Instruction, v string, present bool) error {
	if in.isNullable() {
		w.WriteUnicodeStringNullable(v, present)
		return nil
	}
	if !present {
		return dynamicErrf("mandatory field %q has no value", in.Name)
	}
	w.WriteUnicodeString(v)
	return nil
}

func (s *encoderState) writeBytesField(w *Writer, in *Instruction, v []byte, present bool) error {
	if in.isNullable() {
		w.WriteByteVectorNullable(v, present)
		return nil
	}
	if !present {
		return dynamicErrf("mandatory field %q has no value", in.Name)
	}
	w.WriteByteVector(v)
	return nil
}
