package engine

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

// ErrorKind classifies engine errors.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
)

// Error is a failed engine call. Status carries the HTTP status for remote
// engines and is zero for embedded ones.
type Error struct {
	Op      string
	Status  int
	Message string
	Kind    ErrorKind
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// NotFound builds an error for a missing core, component or schema object.
func NotFound(op, format string, args ...any) *Error {
	return &Error{Op: op, Message: fmt.Sprintf(format, args...), Kind: KindNotFound}
}

var notFoundPattern = regexp.MustCompile(`(?i)(not\s+found|no\s+such|does\s+not\s+exist|cannot\s+unload\s+non-existent|no\s+uptime)`)

// IsNotFound reports whether err means "the thing is already absent". Only
// explicit not-found errors and 400/404 responses whose message says so are
// treated that way; anything else is a real failure.
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Kind == KindNotFound {
		return true
	}
	switch e.Status {
	case http.StatusBadRequest, http.StatusNotFound:
		return notFoundPattern.MatchString(e.Message)
	default:
		return false
	}
}
