package view

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is wrapped by every bounds failure; IndexError carries
// the offending index and the view length.
var ErrIndexOutOfRange = errors.New("view: index out of range")

// ErrReleased reports access through a view whose binding was released.
var ErrReleased = errors.New("view: released")

// IndexError reports a get or set outside [-Length, Length).
type IndexError struct {
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("view: index %d out of range for length %d", e.Index, e.Length)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// normalize maps a possibly negative index into [0, length) or fails.
func normalize(index, length int) (int, error) {
	i := index
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, &IndexError{Index: index, Length: length}
	}
	return i, nil
}
