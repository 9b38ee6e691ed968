package clarity

import "fmt"

// FormatError reports malformed textual input such as a non-hex balance.
type FormatError struct {
	Input  any
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("clarity: format error: %s (input %v)", e.Reason, e.Input)
}

// DecodeError reports malformed consensus binary.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("clarity: decode error at byte %d: %s", e.Offset, e.Reason)
}
