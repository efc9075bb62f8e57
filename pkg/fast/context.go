package fast

// scopeState is the processing context shared by the decode and encode
// descent engines: the session dictionary plus the stacks that track the
// active template, dictionary scope, and application type while the walker
// is inside nested segments.
type scopeState struct {
	dict *Dictionary

	templateID stack[uint32]
	scope      stack[dictName]
	typeRef    stack[string]
}

func newScopeState(dict *Dictionary) scopeState {
	s := scopeState{dict: dict}
	s.scope.push(dictName{kind: dictGlobal})
	s.typeRef.push("")
	return s
}

// pushScope switches the active dictionary scope; inherit keeps the current
// one. Reports whether a matching popScope is required.
func (s *scopeState) pushScope(d dictName) bool {
	if d.kind == dictInherit {
		return false
	}
	s.scope.push(d)
	return true
}

func (s *scopeState) popScope() { s.scope.pop() }

// pushTypeRef switches the application type; empty keeps the current one.
func (s *scopeState) pushTypeRef(name string) bool {
	if name == "" {
		return false
	}
	s.typeRef.push(name)
	return true
}

func (s *scopeState) popTypeRef() { s.typeRef.pop() }

// scopeFor resolves the dictionary scope a field's key lives in. A scope
// declared on the field itself wins; otherwise the enclosing scope applies.
func (s *scopeState) scopeFor(in *Instruction) dictScope {
	dn := in.dictionary
	if dn.kind == dictInherit {
		dn = *s.scope.top()
	}
	switch dn.kind {
	case dictTemplate:
		var id uint32
		if !s.templateID.empty() {
			id = *s.templateID.top()
		}
		return dictScope{kind: dictTemplate, id: id}
	case dictType:
		name := *s.typeRef.top()
		if name == "" {
			name = "__any__"
		}
		return dictScope{kind: dictType, name: name}
	case dictUser:
		return dictScope{kind: dictUser, name: dn.name}
	}
	return dictScope{kind: dictGlobal}
}

// ctxGet looks up the field's previous value. defined is false for the
// undefined state; a defined entry with a nil value is the empty state.
// An assigned value of the wrong type is a dynamic error.
func (s *scopeState) ctxGet(in *Instruction) (e dictEntry, defined bool, err error) {
	e, defined = s.dict.get(s.scopeFor(in), in.key)
	if defined && e.value != nil && !in.Type.matchesValue(e.value) {
		return dictEntry{}, false, dynamicErrf("field %q has a previous value of the wrong type", in.Name)
	}
	return e, defined, nil
}

// ctxSet records the field's new previous value; nil records empty.
func (s *scopeState) ctxSet(in *Instruction, v Value) {
	s.dict.set(s.scopeFor(in), in.key, v)
}
