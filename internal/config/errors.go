package config

import "fmt"

// Error reports a malformed input: a missing file, unparseable YAML, or a
// bad command-line override. Terminal at the CLI boundary.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Msg, e.Err)
	}
	return "config: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a config Error.
func Errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports a semantic violation in an otherwise well-formed
// config: unknown enum value, out-of-range number, or missing section.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation: %s: %s", e.Field, e.Msg)
	}
	return "config validation: " + e.Msg
}

// Validationf builds a ValidationError for a dotted field path.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
