package fast

import "fmt"

// Instruction is one node of a compiled template: a scalar field, a decimal
// composite, a group, a sequence, or a template reference. Structural kinds
// carry their children; a decimal carries its exponent and mantissa scalars.
type Instruction struct {
	ID       uint32
	Name     string
	Type     FieldType
	Presence Presence
	Operator Operator

	// Initial is the operator's initial value, when declared.
	Initial Value

	// Children: group and sequence members (a sequence's first child is its
	// length field), or the exponent and mantissa of a decimal composite.
	Children []*Instruction

	dictionary dictName
	typeRef    string
	key        string

	// hasPmap: for groups and sequences, whether the body opens its own
	// presence map; for decimals, whether a subcomponent claims a bit.
	hasPmap bool
}

func newInstruction(id uint32, name string, typ FieldType) *Instruction {
	switch typ {
	case TypeExponent, TypeMantissa:
		// Subcomponents have no name of their own; keys are derived from the
		// composite when not set explicitly.
		name = ""
	}
	return &Instruction{
		ID:         id,
		Name:       name,
		Type:       typ,
		Presence:   PresenceMandatory,
		Operator:   OpNone,
		dictionary: dictName{kind: dictInherit},
		key:        name,
	}
}

func instructionFromNode(n *xmlNode) (*Instruction, error) {
	var id uint32
	if s, ok := n.attr("id"); ok {
		v, err := parseUint(s, 32)
		if err != nil {
			return nil, err
		}
		id = uint32(v)
	}
	name, _ := n.attr("name")
	unicode := false
	if charset, ok := n.attr("charset"); ok {
		switch charset {
		case "unicode":
			unicode = true
		case "ascii":
		default:
			return nil, templateErrf("unknown charset: %s", charset)
		}
	}
	typ, err := typeFromTag(n.tag(), unicode)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeExponent, TypeMantissa, TypeSequence, TypeGroup, TypeTemplateRef:
	default:
		if id == 0 {
			return nil, templateErrf("<%s/> must have a non-zero id", n.tag())
		}
	}
	switch typ {
	case TypeExponent, TypeMantissa, TypeLength, TypeTemplateRef:
	default:
		if name == "" {
			return nil, templateErrf("<%s/> must have a name", n.tag())
		}
	}

	in := newInstruction(id, name, typ)
	if s, ok := n.attr("presence"); ok {
		if in.Presence, err = presenceFromAttr(s); err != nil {
			return nil, err
		}
	}
	if s, ok := n.attr("dictionary"); ok {
		in.dictionary = dictNameFromAttr(s)
	}
	if s, ok := n.attr("key"); ok {
		in.key = s
	}
	if s, ok := n.attr("typeRef"); ok {
		in.typeRef = s
	}

	switch in.Type {
	case TypeTemplateRef:

	case TypeGroup:
		for i := range n.Children {
			child, err := instructionFromNode(&n.Children[i])
			if err != nil {
				return nil, fmt.Errorf("group %q: %w", in.Name, err)
			}
			in.Children = append(in.Children, child)
		}

	case TypeSequence:
		if err := in.buildSequence(n); err != nil {
			return nil, fmt.Errorf("sequence %q: %w", in.Name, err)
		}

	case TypeDecimal:
		if err := in.buildDecimal(n); err != nil {
			return nil, fmt.Errorf("decimal %q: %w", in.Name, err)
		}

	default:
		if err := in.applyOperatorNode(n); err != nil {
			return nil, fmt.Errorf("field %q: %w", in.Name, err)
		}
	}
	// Decimal components take their presence from the enclosing decimal, so
	// buildDecimal validates them once that is set.
	if in.Type != TypeExponent && in.Type != TypeMantissa {
		if err := in.validate(); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// applyOperatorNode reads the optional operator child element of a scalar.
// Absence of an operator element means the none operator.
func (in *Instruction) applyOperatorNode(n *xmlNode) error {
	if len(n.Children) == 0 {
		return nil
	}
	op := &n.Children[0]
	var err error
	if in.Operator, err = operatorFromTag(op.tag()); err != nil {
		return err
	}
	// The dictionary and key may be declared on the operator element.
	if s, ok := op.attr("dictionary"); ok {
		in.dictionary = dictNameFromAttr(s)
	}
	if s, ok := op.attr("key"); ok {
		in.key = s
	}
	if s, ok := op.attr("value"); ok {
		if in.Initial, err = in.Type.parseValue(s); err != nil {
			return err
		}
	}
	return nil
}

// buildSequence collects the member instructions, synthesizing the implicit
// length field when the first child is not a <length> element. An optional
// sequence makes its length field optional.
func (in *Instruction) buildSequence(n *xmlNode) error {
	for i := range n.Children {
		child, err := instructionFromNode(&n.Children[i])
		if err != nil {
			return err
		}
		if i == 0 {
			if child.Type == TypeLength {
				if child.Name == "" {
					child.Name = in.Name + ":length"
					child.key = child.Name
				}
				child.Presence = in.Presence
			} else {
				length := newInstruction(0, in.Name+":length", TypeLength)
				length.Presence = in.Presence
				in.Children = append(in.Children, length)
			}
		}
		in.Children = append(in.Children, child)
	}
	if len(in.Children) == 0 {
		return templateErrf("sequence has no members")
	}
	return nil
}

// buildDecimal expands a <decimal> element into its exponent and mantissa
// scalars. A single operator element applies to the pair through one
// presence-map bit, except delta and increment, which always devolve onto
// the components.
func (in *Instruction) buildDecimal(n *xmlNode) error {
	var op Operator
	var haveOp bool
	var initial string
	var haveInitial bool
	var exponent, mantissa *Instruction
	for i := range n.Children {
		c := &n.Children[i]
		switch c.tag() {
		case "exponent":
			e, err := instructionFromNode(c)
			if err != nil {
				return err
			}
			exponent = e
		case "mantissa":
			m, err := instructionFromNode(c)
			if err != nil {
				return err
			}
			mantissa = m
		default:
			o, err := operatorFromTag(c.tag())
			if err != nil {
				return err
			}
			op, haveOp = o, true
			if s, ok := c.attr("value"); ok {
				initial, haveInitial = s, true
			}
		}
	}

	switch {
	case !haveOp && exponent == nil && mantissa == nil:
		exponent = newInstruction(0, "exponent", TypeExponent)
		mantissa = newInstruction(0, "mantissa", TypeMantissa)

	case haveOp && exponent == nil && mantissa == nil:
		exponent = newInstruction(0, "exponent", TypeExponent)
		mantissa = newInstruction(0, "mantissa", TypeMantissa)
		switch op {
		case OpDelta, OpIncrement:
			// These never apply to the composite as a whole.
			exponent.Operator = op
			mantissa.Operator = op
		default:
			in.Operator = op
		}
		if haveInitial {
			d, err := ParseDecimal(initial)
			if err != nil {
				return err
			}
			exponent.Initial = Int32(d.Exponent)
			mantissa.Initial = Int64(d.Mantissa)
			if in.Operator != OpNone {
				in.Initial = d
			}
		}

	case !haveOp && exponent != nil && mantissa != nil:

	default:
		return templateErrf("invalid decimal elements")
	}

	exponent.Presence = in.Presence
	mantissa.Presence = PresenceMandatory
	if exponent.key == "" {
		exponent.key = in.key + ":exponent"
	}
	if mantissa.key == "" {
		mantissa.key = in.key + ":mantissa"
	}
	in.Children = []*Instruction{exponent, mantissa}
	for _, c := range in.Children {
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

// validate enforces the operator/type compatibility matrix and the initial
// value requirements at compile time.
func (in *Instruction) validate() error {
	switch in.Operator {
	case OpNone, OpCopy, OpDelta:
		// Applicable to all field types.
	case OpConstant:
		if in.Initial == nil {
			return fmt.Errorf("%w: %w", templateErrf("constant field %q has no value", in.Name), ErrMissingInitial)
		}
	case OpDefault:
		if !in.isOptional() && in.Initial == nil {
			return fmt.Errorf("%w: %w", templateErrf("mandatory default field %q has no value", in.Name), ErrMissingInitial)
		}
	case OpIncrement:
		if !in.Type.isInteger() {
			return templateErrf("increment operator is not applicable to %s field %q", in.Type, in.Name)
		}
	case OpTail:
		if !in.Type.isVector() {
			return templateErrf("tail operator is not applicable to %s field %q", in.Type, in.Name)
		}
	}
	return nil
}

func (in *Instruction) isOptional() bool { return in.Presence == PresenceOptional }

// isNullable reports whether the wire form reserves a null representation.
// Constant fields signal absence through the presence map instead.
func (in *Instruction) isNullable() bool {
	if in.Operator == OpConstant {
		return false
	}
	return in.isOptional()
}
