package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value read from disk does not fit the
// target integer type.
var ErrOverflow = errors.New("integer overflow")

// Uint64ToInt64 converts a file offset for io.ReaderAt.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d does not fit int64", ErrOverflow, v)
	}
	return int64(v), nil
}

// Int64ToInt converts a byte count to a slice length.
func Int64ToInt(v int64) (int, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrOverflow, v)
	}
	if v > math.MaxInt {
		return 0, fmt.Errorf("%w: %d does not fit int", ErrOverflow, v)
	}
	return int(v), nil
}
