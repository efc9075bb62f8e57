package fast

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// Decoder decodes FAST messages against a compiled template set, feeding
// field events to a MessageFactory. Dictionary state persists across
// messages until Reset. A Decoder is not safe for concurrent use.
type Decoder struct {
	set  *templateSet
	dict Dictionary
}

// NewDecoderFromXML compiles a template definition document into a decoder.
func NewDecoderFromXML(templates []byte) (*Decoder, error) {
	set, err := newTemplateSetFromXML(templates)
	if err != nil {
		return nil, err
	}
	return &Decoder{set: set, dict: newDictionary()}, nil
}

// Reset returns every dictionary entry to the undefined state.
func (d *Decoder) Reset() { d.dict.Reset() }

// Decode decodes exactly one message from data. It is an error if bytes
// remain after the message.
func (d *Decoder) Decode(data []byte, f MessageFactory) error {
	r := bytes.NewReader(data)
	if err := d.DecodeReader(r, f); err != nil {
		return err
	}
	if r.Len() != 0 {
		return dynamicErrf("%d bytes left after message", r.Len())
	}
	return nil
}

// DecodeReader decodes one message from r, leaving the cursor at the next
// message boundary. At a clean end of input it returns ErrEOF.
func (d *Decoder) DecodeReader(r io.ByteReader, f MessageFactory) error {
	s := decoderState{
		scopeState: newScopeState(&d.dict),
		set:        d.set,
		r:          r,
		f:          f,
	}
	return s.decodeMessage()
}

// DecodeStream decodes one message from an io.Reader. Reads may block; the
// decoder holds no state between calls beyond the dictionaries. Plain readers
// are consumed byte-at-a-time so no input beyond the message is taken; wrap
// the stream in a bufio.Reader yourself to amortize read calls.
func (d *Decoder) DecodeStream(r io.Reader, f MessageFactory) error {
	if br, ok := r.(io.ByteReader); ok {
		return d.DecodeReader(br, f)
	}
	return d.DecodeReader(&singleByteReader{r: r}, f)
}

// singleByteReader adapts an io.Reader without pulling bytes past the
// current message.
type singleByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (s *singleByteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return 0, err
	}
	return s.buf[0], nil
}

// decoderState drives one message's descent. Created per message, it owns
// the presence-map stack; dictionary state lives on the Decoder.
type decoderState struct {
	scopeState
	set   *templateSet
	r     io.ByteReader
	f     MessageFactory
	pmaps stack[presenceMap]
}

func (s *decoderState) pmapNextBit() bool { return s.pmaps.top().nextBit() }

func (s *decoderState) readPmap(atStart bool) error {
	bitmap, size, err := readPresenceMap(s.r, atStart)
	if err != nil {
		return err
	}
	s.pmaps.push(presenceMapFrom(bitmap, size))
	return nil
}

func (s *decoderState) decodeMessage() error {
	if err := s.readPmap(true); err != nil {
		return err
	}
	t, err := s.readTemplateID()
	if err != nil {
		return err
	}
	s.templateID.push(t.ID)
	hasDict := s.pushScope(t.dictionary)
	hasType := s.pushTypeRef(t.typeRef)

	s.f.StartTemplate(t.ID, t.Name)
	if err := s.decodeInstructions(t.instructions); err != nil {
		return err
	}
	s.f.StopTemplate()

	if hasDict {
		s.popScope()
	}
	if hasType {
		s.popTypeRef()
	}
	s.templateID.pop()
	s.pmaps.pop()
	return nil
}

// readTemplateID runs the synthetic copy-operator field that selects the
// template for the current segment.
func (s *decoderState) readTemplateID() (*Template, error) {
	v, err := s.extract(s.set.templateIDField)
	if err != nil {
		return nil, err
	}
	id, ok := v.(UInt32)
	if !ok {
		return nil, dynamicErrf("template id missing")
	}
	t, ok2 := s.set.byID[uint32(id)]
	if !ok2 {
		return nil, dynamicErrf("unknown template id %d", uint32(id))
	}
	return t, nil
}

func (s *decoderState) decodeInstructions(ins []*Instruction) error {
	for _, in := range ins {
		var err error
		switch in.Type {
		case TypeSequence:
			err = s.decodeSequence(in)
		case TypeGroup:
			err = s.decodeGroup(in)
		case TypeTemplateRef:
			err = s.decodeTemplateRef(in)
		default:
			err = s.decodeField(in)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *decoderState) decodeField(in *Instruction) error {
	v, err := s.extract(in)
	if err != nil {
		return err
	}
	s.f.SetValue(in.ID, in.Name, v)
	return nil
}

func (s *decoderState) decodeGroup(in *Instruction) error {
	if in.isOptional() && !s.pmapNextBit() {
		return nil
	}
	s.f.StartGroup(in.Name)
	hasDict := s.pushScope(in.dictionary)
	hasType := s.pushTypeRef(in.typeRef)
	if in.hasPmap {
		if err := s.readPmap(false); err != nil {
			return err
		}
	}
	if err := s.decodeInstructions(in.Children); err != nil {
		return err
	}
	if in.hasPmap {
		s.pmaps.pop()
	}
	if hasDict {
		s.popScope()
	}
	if hasType {
		s.popTypeRef()
	}
	s.f.StopGroup()
	return nil
}

func (s *decoderState) decodeSequence(in *Instruction) error {
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

	lv, err := s.extract(in.Children[0])
	if err != nil {
		return err
	}
	if lv == nil {
		if in.isOptional() {
			return nil
		}
		return dynamicErrf("mandatory sequence %q has no length", in.Name)
	}
	length := uint32(lv.(UInt32))
	s.f.StartSequence(in.ID, in.Name, length)
	for i := uint32(0); i < length; i++ {
		if in.hasPmap {
			if err := s.readPmap(false); err != nil {
				return err
			}
		}
		s.f.StartSequenceItem(i)
		if err := s.decodeInstructions(in.Children[1:]); err != nil {
			return err
		}
		s.f.StopSequenceItem()
		if in.hasPmap {
			s.pmaps.pop()
		}
	}
	s.f.StopSequence()
	return nil
}

func (s *decoderState) decodeTemplateRef(in *Instruction) error {
	if in.Name != "" {
		// Static reference: the target's instructions run inline in the
		// current segment, sharing its presence map and template id.
		t, ok := s.set.byName[in.Name]
		if !ok {
			return dynamicErrf("referenced template %q not found", in.Name)
		}
		s.f.StartTemplateRef(t.Name, false)
		hasDict := s.pushScope(t.dictionary)
		hasType := s.pushTypeRef(t.typeRef)
		if err := s.decodeInstructions(t.instructions); err != nil {
			return err
		}
		if hasDict {
			s.popScope()
		}
		if hasType {
			s.popTypeRef()
		}
		s.f.StopTemplateRef()
		return nil
	}

	// Dynamic reference: a nested message with its own presence map and
	// template id read from the stream.
	if err := s.readPmap(false); err != nil {
		return err
	}
	t, err := s.readTemplateID()
	if err != nil {
		return err
	}
	s.templateID.push(t.ID)
	hasDict := s.pushScope(t.dictionary)
	hasType := s.pushTypeRef(t.typeRef)
	s.f.StartTemplateRef(t.Name, true)
	if err := s.decodeInstructions(t.instructions); err != nil {
		return err
	}
	s.f.StopTemplateRef()
	if hasDict {
		s.popScope()
	}
	if hasType {
		s.popTypeRef()
	}
	s.templateID.pop()
	s.pmaps.pop()
	return nil
}

// extract runs one field's operator state machine and returns the decoded
// application value, nil meaning absent.
func (s *decoderState) extract(in *Instruction) (Value, error) {
	switch in.Operator {
	case OpNone:
		return s.readValue(in)

	case OpConstant:
		// Never transferred; an optional constant spends one presence bit.
		if !in.isOptional() || s.pmapNextBit() {
			return in.Initial, nil
		}
		return nil, nil

	case OpDefault:
		if s.pmapNextBit() {
			return s.readValue(in)
		}
		return in.Initial, nil

	case OpCopy:
		if s.pmapNextBit() {
			v, err := s.readValue(in)
			if err != nil {
				return nil, err
			}
			s.ctxSet(in, v)
			return v, nil
		}
		e, defined, err := s.ctxGet(in)
		if err != nil {
			return nil, err
		}
		if !defined {
			if in.Initial == nil && !in.isOptional() {
				return nil, fmt.Errorf("%w: copy field %q", ErrMissingPreviousValue, in.Name)
			}
			s.ctxSet(in, in.Initial)
			return in.Initial, nil
		}
		if e.value == nil && !in.isOptional() {
			return nil, fmt.Errorf("%w: copy field %q", ErrMissingPreviousValue, in.Name)
		}
		return e.value, nil

	case OpIncrement:
		if s.pmapNextBit() {
			v, err := s.readValue(in)
			if err != nil {
				return nil, err
			}
			s.ctxSet(in, v)
			return v, nil
		}
		e, defined, err := s.ctxGet(in)
		if err != nil {
			return nil, err
		}
		if !defined {
			if in.Initial == nil && !in.isOptional() {
				return nil, fmt.Errorf("%w: increment field %q", ErrMissingPreviousValue, in.Name)
			}
			s.ctxSet(in, in.Initial)
			return in.Initial, nil
		}
		if e.value == nil {
			if !in.isOptional() {
				return nil, fmt.Errorf("%w: increment field %q", ErrMissingPreviousValue, in.Name)
			}
			return nil, nil
		}
		v, err := applyIncrement(e.value)
		if err != nil {
			return nil, err
		}
		s.ctxSet(in, v)
		return v, nil

	case OpDelta:
		// A delta is always transferred; no presence bit is reserved.
		delta, sub, present, err := s.readDelta(in)
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
		base, err := s.deltaBase(in)
		if err != nil {
			return nil, err
		}
		v, err := applyDelta(base, delta, sub)
		if err != nil {
			return nil, err
		}
		s.ctxSet(in, v)
		return v, nil

	case OpTail:
		if s.pmapNextBit() {
			tail, present, err := s.readTail(in)
			if err != nil {
				return nil, err
			}
			if !present {
				if in.isOptional() {
					return nil, nil
				}
				return nil, dynamicErrf("mandatory tail field %q is null", in.Name)
			}
			base, err := s.tailBase(in)
			if err != nil {
				return nil, err
			}
			v, err := applyTail(base, tail)
			if err != nil {
				return nil, err
			}
			s.ctxSet(in, v)
			return v, nil
		}
		e, defined, err := s.ctxGet(in)
		if err != nil {
			return nil, err
		}
		if !defined {
			if in.Initial == nil && !in.isOptional() {
				return nil, fmt.Errorf("%w: tail field %q", ErrMissingPreviousValue, in.Name)
			}
			s.ctxSet(in, in.Initial)
			return in.Initial, nil
		}
		if e.value == nil && !in.isOptional() {
			return nil, fmt.Errorf("%w: tail field %q", ErrMissingPreviousValue, in.Name)
		}
		return e.value, nil
	}
	return nil, dynamicErrf("field %q has unknown operator", in.Name)
}

// deltaBase resolves the base value a wire delta applies to.
func (s *decoderState) deltaBase(in *Instruction) (Value, error) {
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

// tailBase resolves the base a tail applies to; unlike delta, an empty
// previous value falls back to the initial value.
func (s *decoderState) tailBase(in *Instruction) (Value, error) {
	e, defined, err := s.ctxGet(in)
	if err != nil {
		return nil, err
	}
	if defined && e.value != nil {
		return e.value, nil
	}
	if in.Initial != nil {
		return in.Initial, nil
	}
	return in.Type.defaultValue()
}

// readValue reads one plain value of the instruction's type, honoring the
// null convention for nullable fields.
func (s *decoderState) readValue(in *Instruction) (Value, error) {
	nullable := in.isNullable()
	switch in.Type {
	case TypeUInt32, TypeLength:
		v, present, err := s.readUIntVal(nullable)
		if err != nil || !present {
			return nil, err
		}
		if v > math.MaxUint32 {
			return nil, fmt.Errorf("%w: uInt32 value %d", ErrOverflow, v)
		}
		return UInt32(v), nil
	case TypeUInt64:
		v, present, err := s.readUIntVal(nullable)
		if err != nil || !present {
			return nil, err
		}
		return UInt64(v), nil
	case TypeInt32:
		v, present, err := s.readIntVal(nullable)
		if err != nil || !present {
			return nil, err
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("%w: int32 value %d", ErrOverflow, v)
		}
		return Int32(v), nil
	case TypeExponent:
		v, present, err := s.readIntVal(nullable)
		if err != nil || !present {
			return nil, err
		}
		if v < minExponent || v > maxExponent {
			return nil, dynamicErrf("exponent %d out of range", v)
		}
		return Int32(v), nil
	case TypeInt64, TypeMantissa:
		v, present, err := s.readIntVal(nullable)
		if err != nil || !present {
			return nil, err
		}
		return Int64(v), nil
	case TypeASCIIString:
		if nullable {
			v, present, err := readASCIIStringNullable(s.r)
			if err != nil || !present {
				return nil, err
			}
			return ASCIIString(v), nil
		}
		v, err := readASCIIString(s.r)
		if err != nil {
			return nil, err
		}
		return ASCIIString(v), nil
	case TypeUnicodeString:
		if nullable {
			v, present, err := readUnicodeStringNullable(s.r)
			if err != nil || !present {
				return nil, err
			}
			return UnicodeString(v), nil
		}
		v, err := readUnicodeString(s.r)
		if err != nil {
			return nil, err
		}
		return UnicodeString(v), nil
	case TypeBytes:
		if nullable {
			v, present, err := readByteVectorNullable(s.r)
			if err != nil || !present {
				return nil, err
			}
			return Bytes(v), nil
		}
		v, err := readByteVector(s.r)
		if err != nil {
			return nil, err
		}
		return Bytes(v), nil
	case TypeDecimal:
		// A scaled number is a signed exponent followed by a signed
		// mantissa, each running its own operator.
		e, err := s.extract(in.Children[0])
		if err != nil || e == nil {
			return nil, err
		}
		m, err := s.extract(in.Children[1])
		if err != nil {
			return nil, err
		}
		exp, ok := e.(Int32)
		mant, ok2 := m.(Int64)
		if !ok || !ok2 {
			return nil, dynamicErrf("decimal %q has malformed components", in.Name)
		}
		return NewDecimal(int32(exp), int64(mant)), nil
	}
	return nil, dynamicErrf("cannot read %s field %q", in.Type, in.Name)
}

func (s *decoderState) readUIntVal(nullable bool) (uint64, bool, error) {
	if nullable {
		return readUIntNullable(s.r)
	}
	v, err := readUInt(s.r)
	return v, err == nil, err
}

func (s *decoderState) readIntVal(nullable bool) (int64, bool, error) {
	if nullable {
		return readIntNullable(s.r)
	}
	v, err := readInt(s.r)
	return v, err == nil, err
}

// readDelta reads the wire delta for the field: a signed integer for numeric
// types, a subtraction length plus suffix for vector types.
func (s *decoderState) readDelta(in *Instruction) (delta Value, sub int32, present bool, err error) {
	nullable := in.isNullable()
	if in.Type.isInteger() {
		v, ok, err := s.readIntVal(nullable)
		if err != nil || !ok {
			return nil, 0, false, err
		}
		return Int64(v), 0, true, nil
	}
	if !in.Type.isVector() {
		return nil, 0, false, dynamicErrf("delta is not applicable to %s field %q", in.Type, in.Name)
	}
	v, ok, err := s.readIntVal(nullable)
	if err != nil || !ok {
		return nil, 0, false, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return nil, 0, false, fmt.Errorf("%w: subtraction length %d", ErrOverflow, v)
	}
	sub = int32(v)
	switch in.Type {
	case TypeASCIIString:
		diff, ok, err := s.readVectorPart(in, true)
		if err != nil {
			return nil, 0, false, err
		}
		if !ok {
			return nil, 0, false, dynamicErrf("delta field %q has a null suffix", in.Name)
		}
		return ASCIIString(diff.(ASCIIString)), sub, true, nil
	default:
		diff, ok, err := s.readVectorPart(in, false)
		if err != nil {
			return nil, 0, false, err
		}
		if !ok {
			return nil, 0, false, dynamicErrf("delta field %q has a null suffix", in.Name)
		}
		return diff, sub, true, nil
	}
}

// readTail reads a tail suffix for the field.
func (s *decoderState) readTail(in *Instruction) (Value, bool, error) {
	switch in.Type {
	case TypeASCIIString:
		return s.readVectorPart(in, true)
	case TypeUnicodeString, TypeBytes:
		return s.readVectorPart(in, false)
	}
	return nil, false, dynamicErrf("tail is not applicable to %s field %q", in.Type, in.Name)
}

// readVectorPart reads a suffix for delta and tail: ASCII deltas carry an
// ASCII string, unicode and byte-vector deltas carry raw bytes.
func (s *decoderState) readVectorPart(in *Instruction, ascii bool) (Value, bool, error) {
	nullable := in.isNullable()
	if ascii {
		if nullable {
			v, present, err := readASCIIStringNullable(s.r)
			return ASCIIString(v), present, err
		}
		v, err := readASCIIString(s.r)
		return ASCIIString(v), err == nil, err
	}
	if nullable {
		v, present, err := readByteVectorNullable(s.r)
		return Bytes(v), present, err
	}
	v, err := readByteVector(s.r)
	return Bytes(v), err == nil, err
}
