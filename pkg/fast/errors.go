package fast

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the codec. Stream and operator failures are
// sentinel errors so callers can classify with errors.Is; template and
// runtime semantic failures carry a message and are matched with errors.As.
var (
	// ErrEOF is returned when the input ends cleanly at a message boundary.
	ErrEOF = errors.New("end of stream")

	// ErrUnexpectedEOF is returned when the input ends in the middle of a field.
	ErrUnexpectedEOF = errors.New("unexpected end of stream")

	// ErrOverflow is returned when a stop-bit integer exceeds its declared width.
	ErrOverflow = errors.New("integer overflow")

	// ErrMissingPreviousValue is returned when a dictionary-consulting operator
	// cannot infer a mandatory field's value from the previous-value state.
	ErrMissingPreviousValue = errors.New("missing previous value")

	// ErrMissingInitial is wrapped by the TemplateError returned when an
	// operator requires an initial value but the instruction declares none.
	ErrMissingInitial = errors.New("missing initial value")
)

// TemplateError reports a malformed template definition: bad XML, an unknown
// template reference, an illegal operator/type pairing, or a reference cycle.
type TemplateError struct {
	Msg string
}

func (e *TemplateError) Error() string { return "template error: " + e.Msg }

func templateErrf(format string, args ...any) error {
	return &TemplateError{Msg: fmt.Sprintf(format, args...)}
}

// DynamicError reports a runtime semantic violation: wire content that breaks
// primitive rules, an unknown template id, or a message source supplying a
// value that does not fit the active instruction.
type DynamicError struct {
	Msg string
}

func (e *DynamicError) Error() string { return "dynamic error: " + e.Msg }

func dynamicErrf(format string, args ...any) error {
	return &DynamicError{Msg: fmt.Sprintf(format, args...)}
}
