package ltp

import (
	"errors"
	"fmt"

	"github.com/hupe1980/pstgo/internal/ndb"
)

// ErrType reports a value read as a type it does not hold.
var ErrType = errors.New("ltp: property type mismatch")

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ndb.ErrCorrupt, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ndb.ErrNotFound, fmt.Sprintf(format, args...))
}
