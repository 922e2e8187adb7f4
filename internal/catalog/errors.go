package catalog

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownTool is returned when a tool identifier is not recognised
	ErrUnknownTool = errors.New("unknown tool")

	// ErrUnknownField is returned when form values name a field the tool does not declare
	ErrUnknownField = errors.New("unknown field")

	// ErrToolMismatch is returned when an input or output variant does not match the expected tool
	ErrToolMismatch = errors.New("tool mismatch")
)

// ValidationError lists the required fields an input left empty
type ValidationError struct {
	Tool    Tool
	Missing []string
}

func (e *ValidationError) Error() string {
	return "invalid " + string(e.Tool) + " input: missing required fields: " + strings.Join(e.Missing, ", ")
}
