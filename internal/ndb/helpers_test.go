package ndb_test

import (
	"context"
	"testing"

	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/require"
)

var formats = []struct {
	name   string
	format ndb.Format
}{
	{"ansi", ndb.FormatANSI},
	{"unicode", ndb.FormatUnicode},
	{"unicode4k", ndb.FormatUnicode4K},
}

var crypts = []ndb.CryptMethod{ndb.CryptNone, ndb.CryptPermute, ndb.CryptCyclic}

func open(t *testing.T, img *testutil.Image, opts ndb.Options) *ndb.Database {
	t.Helper()
	db, err := ndb.Open(context.Background(), img.Blob(), opts)
	require.NoError(t, err)
	return db
}

func verified() ndb.Options {
	return ndb.Options{VerifyChecksums: true}
}
