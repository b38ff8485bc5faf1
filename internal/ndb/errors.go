package ndb

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat reports a file that is not a supported PST/OST container.
	ErrFormat = errors.New("ndb: unsupported format")
	// ErrCorrupt reports structurally invalid on-disk data.
	ErrCorrupt = errors.New("ndb: corrupt data")
	// ErrNotFound reports an absent node, block or subnode.
	ErrNotFound = errors.New("ndb: not found")
	// ErrIO reports a failure of the underlying byte source.
	ErrIO = errors.New("ndb: i/o failure")
)

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

func formatf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// Dangling reports a lookup miss for a reference read from an existing
// structure as ErrCorrupt. Other errors pass through unchanged.
func Dangling(err error, format string, args ...any) error {
	if errors.Is(err, ErrNotFound) {
		return corruptf("%s: %v", fmt.Sprintf(format, args...), err)
	}
	return err
}
