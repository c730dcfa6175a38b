package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrMappingNotFound = errors.New("mapping not found")
	ErrDataSource      = errors.New("data source error")
)

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// MappingNotFoundError reports a missing column mapping or canonical
// columns absent after formatting.
type MappingNotFoundError struct {
	Account string
	Missing []string
	Present []string
	Message string
}

func (e *MappingNotFoundError) Error() string {
	var b strings.Builder
	b.WriteString("mapping not found")
	if e.Account != "" {
		fmt.Fprintf(&b, " for account %q", e.Account)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "; missing columns [%s]", strings.Join(e.Missing, ", "))
	}
	if len(e.Present) > 0 {
		fmt.Fprintf(&b, "; present columns [%s]", strings.Join(e.Present, ", "))
	}
	return b.String()
}

func (e *MappingNotFoundError) Is(target error) bool { return target == ErrMappingNotFound }

// DataSourceError reports a file that is missing or unreadable.
type DataSourceError struct {
	Path string
	Err  error
}

func (e *DataSourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("data source %s", e.Path)
	}
	return fmt.Sprintf("data source %s: %v", e.Path, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

func (e *DataSourceError) Is(target error) bool { return target == ErrDataSource }
