package fast

import (
	"fmt"
	"strconv"
)

// Operator selects the compression rule a field's wire form is derived by.
type Operator int

const (
	OpNone Operator = iota
	OpConstant
	OpDefault
	OpCopy
	OpIncrement
	OpDelta
	OpTail
)

func operatorFromTag(tag string) (Operator, error) {
	switch tag {
	case "constant":
		return OpConstant, nil
	case "default":
		return OpDefault, nil
	case "copy":
		return OpCopy, nil
	case "increment":
		return OpIncrement, nil
	case "delta":
		return OpDelta, nil
	case "tail":
		return OpTail, nil
	}
	return OpNone, templateErrf("unknown operator: %s", tag)
}

func (o Operator) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpConstant:
		return "constant"
	case OpDefault:
		return "default"
	case OpCopy:
		return "copy"
	case OpIncrement:
		return "increment"
	case OpDelta:
		return "delta"
	case OpTail:
		return "tail"
	}
	return fmt.Sprintf("operator(%d)", int(o))
}

// Presence marks a field mandatory or optional. Optional fields use the FAST
// nullability convention on the wire.
type Presence int

const (
	PresenceMandatory Presence = iota
	PresenceOptional
)

func presenceFromAttr(s string) (Presence, error) {
	switch s {
	case "mandatory":
		return PresenceMandatory, nil
	case "optional":
		return PresenceOptional, nil
	}
	return PresenceMandatory, templateErrf("unknown presence: %s", s)
}

// FieldType is the declared encoding of an instruction. It covers the scalar
// types plus the structural kinds the descent engine dispatches on.
type FieldType int

const (
	TypeUInt32 FieldType = iota
	TypeInt32
	TypeUInt64
	TypeInt64
	TypeLength
	TypeExponent
	TypeMantissa
	TypeDecimal
	TypeASCIIString
	TypeUnicodeString
	TypeBytes
	TypeSequence
	TypeGroup
	TypeTemplateRef
)

func typeFromTag(tag string, unicode bool) (FieldType, error) {
	switch tag {
	case "uInt32":
		return TypeUInt32, nil
	case "int32":
		return TypeInt32, nil
	case "uInt64":
		return TypeUInt64, nil
	case "int64":
		return TypeInt64, nil
	case "length":
		return TypeLength, nil
	case "exponent":
		return TypeExponent, nil
	case "mantissa":
		return TypeMantissa, nil
	case "decimal":
		return TypeDecimal, nil
	case "string":
		if unicode {
			return TypeUnicodeString, nil
		}
		return TypeASCIIString, nil
	case "byteVector":
		return TypeBytes, nil
	case "sequence":
		return TypeSequence, nil
	case "group":
		return TypeGroup, nil
	case "templateRef":
		return TypeTemplateRef, nil
	}
	return 0, templateErrf("unknown field type: %s", tag)
}

func (t FieldType) String() string {
	switch t {
	case TypeUInt32:
		return "uInt32"
	case TypeInt32:
		return "int32"
	case TypeUInt64:
		return "uInt64"
	case TypeInt64:
		return "int64"
	case TypeLength:
		return "length"
	case TypeExponent:
		return "exponent"
	case TypeMantissa:
		return "mantissa"
	case TypeDecimal:
		return "decimal"
	case TypeASCIIString, TypeUnicodeString:
		return "string"
	case TypeBytes:
		return "byteVector"
	case TypeSequence:
		return "sequence"
	case TypeGroup:
		return "group"
	case TypeTemplateRef:
		return "templateRef"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

func (t FieldType) isInteger() bool {
	switch t {
	case TypeUInt32, TypeInt32, TypeUInt64, TypeInt64, TypeLength, TypeExponent, TypeMantissa:
		return true
	}
	return false
}

func (t FieldType) isVector() bool {
	switch t {
	case TypeASCIIString, TypeUnicodeString, TypeBytes:
		return true
	}
	return false
}

// defaultValue is the type-dependent base used by delta and tail when the
// previous value is undefined and no initial value is declared.
func (t FieldType) defaultValue() (Value, error) {
	switch t {
	case TypeUInt32, TypeLength:
		return UInt32(0), nil
	case TypeInt32, TypeExponent:
		return Int32(0), nil
	case TypeUInt64:
		return UInt64(0), nil
	case TypeInt64, TypeMantissa:
		return Int64(0), nil
	case TypeDecimal:
		return Decimal{}, nil
	case TypeASCIIString:
		return ASCIIString(""), nil
	case TypeUnicodeString:
		return UnicodeString(""), nil
	case TypeBytes:
		return Bytes(nil), nil
	}
	return nil, dynamicErrf("%s has no default value", t)
}

// parseValue converts a literal attribute into a typed value.
func (t FieldType) parseValue(s string) (Value, error) {
	switch t {
	case TypeUInt32, TypeLength:
		v, err := parseUint(s, 32)
		return UInt32(v), err
	case TypeInt32, TypeExponent:
		v, err := parseInt(s, 32)
		return Int32(v), err
	case TypeUInt64:
		v, err := parseUint(s, 64)
		return UInt64(v), err
	case TypeInt64, TypeMantissa:
		v, err := parseInt(s, 64)
		return Int64(v), err
	case TypeDecimal:
		return ParseDecimal(s)
	case TypeASCIIString:
		return ASCIIString(s), nil
	case TypeUnicodeString:
		return UnicodeString(s), nil
	case TypeBytes:
		b, err := parseHexBytes(s)
		return Bytes(b), err
	}
	return nil, templateErrf("cannot convert literal to %s", t)
}

// matchesValue reports whether a dictionary entry's value is usable for a
// field of this type.
func (t FieldType) matchesValue(v Value) bool {
	switch t {
	case TypeUInt32, TypeLength:
		_, ok := v.(UInt32)
		return ok
	case TypeInt32, TypeExponent:
		_, ok := v.(Int32)
		return ok
	case TypeUInt64:
		_, ok := v.(UInt64)
		return ok
	case TypeInt64, TypeMantissa:
		_, ok := v.(Int64)
		return ok
	case TypeDecimal:
		_, ok := v.(Decimal)
		return ok
	case TypeASCIIString:
		_, ok := v.(ASCIIString)
		return ok
	case TypeUnicodeString:
		_, ok := v.(UnicodeString)
		return ok
	case TypeBytes:
		_, ok := v.(Bytes)
		return ok
	}
	return false
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, templateErrf("invalid integer literal %q", s)
	}
	return v, nil
}

func parseInt(s string, bits int) (int64, error) {
	v, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return 0, templateErrf("invalid integer literal %q", s)
	}
	return v, nil
}

// Dictionary scope kinds. Inherit resolves through the enclosing element.
type dictKind int

const (
	dictInherit dictKind = iota
	dictGlobal
	dictTemplate
	dictType
	dictUser
)

type dictName struct {
	kind dictKind
	name string // user-defined dictionary name
}

func dictNameFromAttr(s string) dictName {
	switch s {
	case "global":
		return dictName{kind: dictGlobal}
	case "template":
		return dictName{kind: dictTemplate}
	case "type":
		return dictName{kind: dictType}
	}
	return dictName{kind: dictUser, name: s}
}
