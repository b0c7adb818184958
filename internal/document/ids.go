package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNonNumericID is returned when synthetic child ids are requested for a
// collection whose top-level ids are not integers.
var ErrNonNumericID = errors.New("non-numeric document id")

// IDAllocator hands out synthetic ids for embedded child documents. The first
// id is one past the largest top-level id so children never collide with
// parents.
type IDAllocator struct {
	next int64
}

// NewIDAllocator seeds an allocator from the top-level document ids.
func NewIDAllocator(ids []string) (*IDAllocator, error) {
	var max int64
	for _, id := range ids {
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNonNumericID, id)
		}
		if n > max {
			max = n
		}
	}
	return &IDAllocator{next: max + 1}, nil
}

// Next returns a fresh id.
func (a *IDAllocator) Next() int64 {
	id := a.next
	a.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (a *IDAllocator) Peek() int64 {
	return a.next
}
