package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CustomError is returned by middleware and rendered by the server error handler.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

var (
	// ErrUnknownCollection is returned for a collection path this service does not serve.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrNotFound reports a record that does not exist at its collection path.
	ErrNotFound = errors.New("not found")

	// ErrStorageObjectNotFound reports an object storage path with nothing stored at it.
	ErrStorageObjectNotFound = errors.New("storage object not found")

	// ErrConfirmationRequired is returned by destructive actions that were not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrProtectedRecord is returned when an action targets the complaint table sentinel row.
	ErrProtectedRecord = errors.New("record is protected")
)

// ValidationError carries field level messages. It never reaches the store.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for a field, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// WriteError wraps a transport or backend failure on create, update or delete.
type WriteError struct {
	Op   string
	Path string
	ID   string
	Err  error
}

func (e *WriteError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Path, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the write failed because the record was already gone.
func (e *WriteError) NotFound() bool {
	return errors.Is(e.Err, ErrNotFound)
}

// ReadError wraps a failure to read a collection snapshot.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means a record or storage object is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorageObjectNotFound)
}
