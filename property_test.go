package pstgo_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/hupe1980/pstgo"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyTag(t *testing.T) {
	tag := pstgo.NewPropertyTag(0x0037, pstgo.TypeUnicode)
	assert.Equal(t, pstgo.TagSubject, tag)
	assert.Equal(t, uint16(0x0037), tag.ID())
	assert.Equal(t, pstgo.TypeUnicode, tag.Type())
	assert.False(t, tag.IsNamed())
	assert.Equal(t, "0x0037001F", tag.String())
	assert.True(t, pstgo.NewPropertyTag(0x8001, pstgo.TypeInt32).IsNamed())
}

func TestElement_Properties(t *testing.T) {
	ctx := context.Background()
	msg := firstMessage(t, openMailbox(t, richMailbox(), ndb.FormatUnicode, ndb.CryptPermute))

	props, err := msg.Properties(ctx)
	require.NoError(t, err)

	var tags []pstgo.PropertyTag
	for _, p := range props {
		tags = append(tags, p.Tag)
	}
	assert.IsIncreasing(t, tags)
	assert.Contains(t, tags, pstgo.TagSubject)
	assert.Contains(t, tags, pstgo.TagClientSubmitTime)

	p, err := msg.Property(ctx, pstgo.TagClientSubmitTime)
	require.NoError(t, err)
	assert.Equal(t, pstgo.TypeTime, p.Type())
	ts, err := p.Time()
	require.NoError(t, err)
	assert.True(t, submitted.Equal(ts))
	assert.NotEmpty(t, p.Format())

	// The stored type wins over the requested one.
	p, err = msg.Property(ctx, pstgo.NewPropertyTag(0x0037, pstgo.TypeBinary))
	require.NoError(t, err)
	assert.Equal(t, pstgo.TagSubject, p.Tag)

	_, err = p.Int()
	assert.ErrorIs(t, err, pstgo.ErrInvalidOperation)

	_, err = msg.Property(ctx, pstgo.TagTransportHeaders)
	assert.ErrorIs(t, err, pstgo.ErrNotFound)
	assert.False(t, msg.Has(ctx, pstgo.TagTransportHeaders))
	assert.True(t, msg.Has(ctx, pstgo.TagBody))

	// Typed helpers return zero values.
	assert.Empty(t, msg.String(ctx, pstgo.TagTransportHeaders))
	assert.Zero(t, msg.Int32(ctx, pstgo.TagTransportHeaders))
	assert.Zero(t, msg.Int64(ctx, pstgo.TagSubject))
	assert.False(t, msg.Bool(ctx, pstgo.TagSubject))
	assert.True(t, msg.Time(ctx, pstgo.TagSubject).IsZero())
	assert.Nil(t, msg.Bytes(ctx, pstgo.TagTransportHeaders))
}

func TestElement_DefaultCodePage(t *testing.T) {
	ctx := context.Background()
	const tagNormalizedSubject8 = pstgo.PropertyTag(0x0E1D001E)

	m := testutil.MinimalMailbox()
	msg := m.Root.Folders[0].Messages[0]
	msg.Props = append(msg.Props, prop(tagNormalizedSubject8, []byte("\xcf\xf0\xe8\xe2\xe5\xf2")))

	f := openMailbox(t, m, ndb.FormatANSI, ndb.CryptPermute)
	assert.Equal(t, "Ïðèâåò", firstMessage(t, f).String(ctx, tagNormalizedSubject8))

	f = openMailbox(t, m, ndb.FormatANSI, ndb.CryptPermute, pstgo.WithDefaultCodePage(1251))
	assert.Equal(t, "Привет", firstMessage(t, f).String(ctx, tagNormalizedSubject8))
}

func TestFile_NamedProperties(t *testing.T) {
	ctx := context.Background()
	custom := uuid.MustParse("00062004-0000-0000-c000-000000000046")

	m := testutil.MinimalMailbox()
	m.NamedProps = []testutil.NamedProp{
		{GUID: pstgo.PSMAPI, LID: 0x8005},
		{GUID: pstgo.PSPublicStrings, Name: "Keywords"},
		{GUID: custom, LID: 0x8083},
	}
	f := openMailbox(t, m, ndb.FormatUnicode, ndb.CryptCyclic)

	names, err := f.NamedProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, names.Len())
	require.Len(t, names.All(), 3)

	id, ok := names.FindName(pstgo.PSPublicStrings, "Keywords")
	require.True(t, ok)
	np, ok := names.Lookup(id)
	require.True(t, ok)
	assert.True(t, np.IsString())
	assert.Equal(t, "Keywords", np.Name)
	assert.Contains(t, np.String(), "Keywords")

	id, ok = names.FindLID(custom, 0x8083)
	require.True(t, ok)
	np, ok = names.Lookup(id)
	require.True(t, ok)
	assert.False(t, np.IsString())
	assert.Equal(t, uint32(0x8083), np.LID)
	assert.Equal(t, custom, np.GUID)

	_, ok = names.FindLID(custom, 0x9999)
	assert.False(t, ok)
	_, ok = names.Lookup(0x7FFF)
	assert.False(t, ok)

	again, err := f.NamedProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, names.Len(), again.Len())
}

func TestFile_NamedPropertiesMissing(t *testing.T) {
	f := openMailbox(t, testutil.MinimalMailbox(), ndb.FormatANSI, ndb.CryptNone)
	names, err := f.NamedProperties(context.Background())
	require.NoError(t, err)
	assert.Zero(t, names.Len())
}

func TestMessageStore(t *testing.T) {
	ctx := context.Background()
	m := testutil.MinimalMailbox()

	img := m.Build(ndb.FormatUnicode, ndb.CryptNone)
	f, err := pstgo.Open(ctx, pstgo.Bytes(img.Data))
	require.NoError(t, err)
	defer f.Close()

	root, err := f.RootFolder(ctx)
	require.NoError(t, err)
	inbox := collect(t, root.Folders(ctx))[0]

	entry := make([]byte, 24)
	binary.LittleEndian.PutUint32(entry[20:], inbox.NID())
	m.StoreProps = []testutil.Prop{prop(pstgo.TagIPMSubtreeEntryID, entry)}

	f2 := openMailbox(t, m, ndb.FormatUnicode, ndb.CryptNone)
	store, err := f2.MessageStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, pstgo.KindStore, store.Kind())
	assert.Equal(t, uint32(0x21), store.NID())
	assert.Equal(t, entry, store.IPMSubtreeEntryID(ctx))

	sub, err := store.IPMSubtree(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Inbox", sub.DisplayName(ctx))

	_, err = store.Wastebasket(ctx)
	assert.ErrorIs(t, err, pstgo.ErrNotFound)

	nid, ok := pstgo.EntryIDNID(entry)
	assert.True(t, ok)
	assert.Equal(t, inbox.NID(), nid)
	_, ok = pstgo.EntryIDNID(entry[:20])
	assert.False(t, ok)
}
