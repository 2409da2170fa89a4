package shm

import "errors"

var (
	// ErrExists reports an exclusive-create against a name that already
	// has a live segment.
	ErrExists = errors.New("shm: segment already exists")
	// ErrNotExist reports an open or remove against a name with no live
	// segment.
	ErrNotExist = errors.New("shm: segment does not exist")
)
