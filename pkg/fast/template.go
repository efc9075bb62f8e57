package fast

import (
	"encoding/xml"
	"fmt"
)

// TemplateNamespace is the FAST template definition namespace.
const TemplateNamespace = "http://www.fixprotocol.org/ns/fast/td/1.1"

// xmlNode is a generic element tree; the template schema is small enough
// that walking elements beats a struct per tag.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

func (n *xmlNode) tag() string { return n.XMLName.Local }

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Template is one compiled message schema: an ordered instruction list plus
// the dictionary scope its operators resolve in by default.
type Template struct {
	ID   uint32
	Name string

	dictionary   dictName
	typeRef      string
	instructions []*Instruction

	// requirePmap reports whether inlining this template through a static
	// reference contributes bits to the enclosing presence map.
	requirePmap bool
	pmapState   pmapAnalysis
}

type pmapAnalysis int

const (
	pmapUnvisited pmapAnalysis = iota
	pmapVisiting
	pmapDone
)

func templateFromNode(n *xmlNode) (*Template, error) {
	if n.tag() != "template" {
		return nil, templateErrf("expected <template/>, got <%s/>", n.tag())
	}
	t := &Template{dictionary: dictName{kind: dictGlobal}}
	if s, ok := n.attr("id"); ok {
		id, err := parseUint(s, 32)
		if err != nil {
			return nil, err
		}
		t.ID = uint32(id)
	}
	name, ok := n.attr("name")
	if !ok {
		return nil, templateErrf("template has no name")
	}
	t.Name = name
	if s, ok := n.attr("typeRef"); ok {
		t.typeRef = s
	}
	if s, ok := n.attr("dictionary"); ok {
		t.dictionary = dictNameFromAttr(s)
	}
	for i := range n.Children {
		in, err := instructionFromNode(&n.Children[i])
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		t.instructions = append(t.instructions, in)
	}
	return t, nil
}

// parseTemplates parses a <templates> document into compiled templates.
func parseTemplates(data []byte) ([]*Template, error) {
	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, templateErrf("parse templates: %v", err)
	}
	if root.tag() != "templates" {
		return nil, templateErrf("expected <templates/> root, got <%s/>", root.tag())
	}
	var templates []*Template
	for i := range root.Children {
		t, err := templateFromNode(&root.Children[i])
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// templateSet is the immutable compiled form shared by decoder and encoder:
// id and name lookup maps plus the synthetic template-id instruction that
// heads every top-level message.
type templateSet struct {
	templates []*Template
	byID      map[uint32]*Template
	byName    map[string]*Template

	// The template id is transferred as a copy-operator uInt32 in the global
	// dictionary, so repeated messages of one template omit the id bytes.
	templateIDField *Instruction
}

func newTemplateSet(templates []*Template) (*templateSet, error) {
	s := &templateSet{
		templates: templates,
		byID:      make(map[uint32]*Template, len(templates)),
		byName:    make(map[string]*Template, len(templates)),
		templateIDField: &Instruction{
			Name:       templateIDKey,
			Type:       TypeUInt32,
			Operator:   OpCopy,
			dictionary: dictName{kind: dictGlobal},
			key:        templateIDKey,
		},
	}
	for _, t := range templates {
		if t.ID != 0 {
			if _, dup := s.byID[t.ID]; dup {
				return nil, templateErrf("duplicate template id %d", t.ID)
			}
			s.byID[t.ID] = t
		}
		if t.Name != "" {
			if _, dup := s.byName[t.Name]; dup {
				return nil, templateErrf("duplicate template name %q", t.Name)
			}
			s.byName[t.Name] = t
		}
	}
	if err := s.finalize(); err != nil {
		return nil, err
	}
	return s, nil
}

const templateIDKey = "__template_id__"

func newTemplateSetFromXML(data []byte) (*templateSet, error) {
	templates, err := parseTemplates(data)
	if err != nil {
		return nil, err
	}
	return newTemplateSet(templates)
}

// finalize runs the presence-map analysis over every template. Static
// template references recurse into their targets, so this also rejects
// unknown targets and reference cycles.
func (s *templateSet) finalize() error {
	for _, t := range s.templates {
		if _, err := s.templateRequiresPmap(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *templateSet) templateRequiresPmap(t *Template) (bool, error) {
	switch t.pmapState {
	case pmapDone:
		return t.requirePmap, nil
	case pmapVisiting:
		return false, templateErrf("static template reference cycle through %q", t.Name)
	}
	t.pmapState = pmapVisiting
	need, err := s.anyPmapBit(t.instructions)
	if err != nil {
		return false, err
	}
	t.requirePmap = need
	t.pmapState = pmapDone
	return need, nil
}

// anyPmapBit must visit every instruction: instructionPmapBit also computes
// the hasPmap flag down the tree, so no early exit.
func (s *templateSet) anyPmapBit(ins []*Instruction) (bool, error) {
	any := false
	for _, in := range ins {
		bit, err := s.instructionPmapBit(in)
		if err != nil {
			return false, err
		}
		any = any || bit
	}
	return any, nil
}

// instructionPmapBit reports whether the instruction reserves a bit in the
// enclosing presence map, and records whether its own body needs one.
func (s *templateSet) instructionPmapBit(in *Instruction) (bool, error) {
	switch in.Type {
	case TypeGroup, TypeDecimal:
		need, err := s.anyPmapBit(in.Children)
		if err != nil {
			return false, err
		}
		in.hasPmap = need
	case TypeSequence:
		need, err := s.anyPmapBit(in.Children[1:])
		if err != nil {
			return false, err
		}
		in.hasPmap = need
	}

	switch in.Type {
	case TypeGroup:
		// An optional group occupies a single bit in the presence map.
		return in.isOptional(), nil
	case TypeSequence:
		// A sequence's bit is its length field's bit.
		return s.instructionPmapBit(in.Children[0])
	case TypeTemplateRef:
		if in.Name == "" {
			// A dynamic reference reads its own presence map.
			return false, nil
		}
		t, ok := s.byName[in.Name]
		if !ok {
			return false, templateErrf("referenced template %q not found", in.Name)
		}
		return s.templateRequiresPmap(t)
	case TypeDecimal:
		if in.hasPmap {
			// A subcomponent claims a bit; a decimal whose components carry
			// operators has no operator of its own.
			return true, nil
		}
	}

	switch in.Operator {
	case OpNone, OpDelta:
		return false, nil
	case OpDefault, OpCopy, OpIncrement, OpTail:
		return true, nil
	case OpConstant:
		return in.isOptional(), nil
	}
	return false, nil
}
