package pstgo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/internal/rtf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
		is   error
	}{
		{"format", fmt.Errorf("%w: bad magic", ndb.ErrFormat), ErrorKindFormat, ErrFormat},
		{"corrupt", fmt.Errorf("%w: bad page", ndb.ErrCorrupt), ErrorKindCorrupt, ErrCorrupt},
		{"not found", fmt.Errorf("%w: nid", ndb.ErrNotFound), ErrorKindNotFound, ErrNotFound},
		{"io", fmt.Errorf("%w: short read", ndb.ErrIO), ErrorKindIO, ErrIO},
		{"canceled", context.Canceled, ErrorKindIO, ErrIO},
		{"type", fmt.Errorf("%w: want int", ltp.ErrType), ErrorKindInvalidOperation, ErrInvalidOperation},
		{"rtf", rtf.ErrChecksum, ErrorKindCorrupt, ErrCorrupt},
		{"state", ErrInvalidState, ErrorKindInvalidState, ErrInvalidOperation},
		{"unknown", errors.New("boom"), ErrorKindUnknown, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError("folder", 0x122, tt.err)

			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, "folder", pe.Op)
			assert.Equal(t, uint32(0x122), pe.NID)
			assert.ErrorIs(t, err, tt.err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestTranslateError_PassThrough(t *testing.T) {
	assert.NoError(t, translateError("x", 0, nil))

	inner := newError(ErrorKindNotFound, "property", 0x21, nil)
	outer := translateError("store", 0, fmt.Errorf("wrapped: %w", inner))

	var pe *Error
	require.ErrorAs(t, outer, &pe)
	assert.Same(t, inner, pe)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "folder nid 0x122: not found", newError(ErrorKindNotFound, "folder", 0x122, nil).Error())
	assert.Equal(t, "open: ndb: i/o failure", newError(ErrorKindIO, "open", 0, ndb.ErrIO).Error())
	assert.Equal(t, "invalid state", ErrorKindInvalidState.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}
