package kvschema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is the cause of a DecodeError produced by a failed validator.
	ErrValidation = errors.New("value rejected by validator")

	// ErrUnknownField is returned by hash operations on a field that the hash does not declare.
	ErrUnknownField = errors.New("unknown hash field")

	// ErrNotConnected is returned by backends used before Connect or after Quit.
	ErrNotConnected = errors.New("not connected")

	// ErrWrongType is returned by the built-in backends when a key holds a different kind of value.
	ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
)

// ConnectionError is returned when connecting (or reconnecting) to the backend fails.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("kvschema: %s: %v", e.Op, e.Err)
}

// BackendError wraps a failed backend call. The original error stays reachable
// via errors.Is / errors.As.
type BackendError struct {
	Schema string
	Op     string
	Key    string
	Err    error
}

func backendErr(schema, op, key string, err error) error {
	return &BackendError{schema, op, key, err}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Error() string {
	var buf strings.Builder
	buf.WriteString("kvschema: ")
	if e.Schema != "" {
		buf.WriteString(e.Schema)
		buf.WriteByte('.')
	}
	buf.WriteString(e.Op)
	if e.Key != "" {
		buf.WriteByte(' ')
		buf.WriteString(e.Key)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// SerializationError is returned when a value cannot be represented in its wire form.
type SerializationError struct {
	Schema string
	Value  any
	Err    error
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func (e *SerializationError) Error() string {
	if e.Schema != "" {
		return fmt.Sprintf("kvschema: %s: cannot serialize %T: %v", e.Schema, e.Value, e.Err)
	}
	return fmt.Sprintf("kvschema: cannot serialize %T: %v", e.Value, e.Err)
}

// DecodeError describes wire text that could not be decoded. Operations never
// return it; they report it to the Observer and treat the value as absent.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Error() string {
	const prefixLen = 64
	const suffixLen = 16
	raw := e.Raw
	if n := len(raw); n > prefixLen+suffixLen {
		raw = fmt.Sprintf("%s...%s (%d)", raw[:prefixLen], raw[n-suffixLen:], n)
	}
	return fmt.Sprintf("kvschema: cannot decode %q: %v", raw, e.Err)
}
