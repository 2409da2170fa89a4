package segment

import "errors"

var (
	// ErrInvalidSize reports a create with a non-positive byte size,
	// rejected before any OS call.
	ErrInvalidSize = errors.New("segment: size must be positive")

	// ErrDuplicateName reports a registry insert for a name this process
	// already tracks, in either partition. Generated names make this
	// effectively unreachable, so it is surfaced rather than retried.
	ErrDuplicateName = errors.New("segment: name already registered in this process")

	// ErrNotFound reports an attach or lookup against a name with no live
	// OS segment. Recoverable by the caller.
	ErrNotFound = errors.New("segment: no such segment")

	// ErrNotOwner reports an unlink attempt on a segment this process only
	// attached to. Destruction belongs to the creating process.
	ErrNotOwner = errors.New("segment: not owned by this process")

	// ErrViewsOutstanding reports a close while exported views into the
	// mapping are still live. Release every view first.
	ErrViewsOutstanding = errors.New("segment: exported views still outstanding")

	// ErrNotClosed reports an unlink before the local mapping was closed.
	ErrNotClosed = errors.New("segment: mapping still open")

	// ErrNoSpace reports a create that would not fit in the backing
	// shared memory filesystem.
	ErrNoSpace = errors.New("segment: insufficient space in shared memory filesystem")
)
