package pstgo_test

import (
	"context"
	"testing"

	"github.com/hupe1980/pstgo"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treeMailbox() *testutil.Mailbox {
	return &testutil.Mailbox{
		DisplayName: "Archive",
		Root: &testutil.Folder{
			Name: "Root",
			Folders: []*testutil.Folder{
				{
					Name:  "Inbox",
					Class: "IPF.Note",
					Messages: []*testutil.Message{
						{Subject: "first"},
						{Subject: "second", Unread: true},
					},
					Associated: []*testutil.Message{
						{Subject: "view", Class: "IPM.Microsoft.FolderDesign.NamedView"},
					},
					Folders: []*testutil.Folder{{Name: "Projects", Class: "IPF.Note"}},
				},
				{Name: "Calendar", Class: "IPF.Appointment"},
				{Name: "Sent Items", Class: "IPF.Note"},
			},
		},
	}
}

func TestFolder_Hierarchy(t *testing.T) {
	ctx := context.Background()
	for _, tt := range formats {
		t.Run(tt.name, func(t *testing.T) {
			f := openMailbox(t, treeMailbox(), tt.format, ndb.CryptPermute)

			root, err := f.RootFolder(ctx)
			require.NoError(t, err)
			assert.True(t, root.IsRoot())
			assert.Equal(t, pstgo.KindFolder, root.Kind())
			assert.Equal(t, uint32(0x122), root.NID())
			assert.True(t, root.HasSubfolders(ctx))

			subs := collect(t, root.Folders(ctx))
			require.Len(t, subs, 3)

			var names []string
			for _, s := range subs {
				names = append(names, s.DisplayName(ctx))
			}
			assert.ElementsMatch(t, []string{"Inbox", "Calendar", "Sent Items"}, names)

			var inbox *pstgo.Folder
			for _, s := range subs {
				if s.DisplayName(ctx) == "Inbox" {
					inbox = s
				}
			}
			require.NotNil(t, inbox)
			assert.Equal(t, "IPF.Note", inbox.ContainerClass(ctx))
			assert.Equal(t, 2, inbox.ContentCount(ctx))
			assert.Equal(t, 1, inbox.UnreadCount(ctx))
			assert.True(t, inbox.HasSubfolders(ctx))

			n, err := inbox.MessageCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			nested := collect(t, inbox.Folders(ctx))
			require.Len(t, nested, 1)
			assert.Equal(t, "Projects", nested[0].DisplayName(ctx))
			assert.False(t, nested[0].HasSubfolders(ctx))
			assert.Empty(t, collect(t, nested[0].Folders(ctx)))
			assert.Empty(t, collect(t, nested[0].Messages(ctx)))

			parent, err := nested[0].Parent(ctx)
			require.NoError(t, err)
			assert.Equal(t, inbox.NID(), parent.NID())

			grand, err := parent.Parent(ctx)
			require.NoError(t, err)
			assert.True(t, grand.IsRoot())

			_, err = root.Parent(ctx)
			assert.ErrorIs(t, err, pstgo.ErrNotFound)
		})
	}
}

func TestFolder_Messages(t *testing.T) {
	ctx := context.Background()
	f := openMailbox(t, treeMailbox(), ndb.FormatUnicode, ndb.CryptCyclic)
	inbox := inbox(t, f)

	msgs := collect(t, inbox.Messages(ctx))
	require.Len(t, msgs, 2)

	bySubject := map[string]*pstgo.Message{}
	for _, m := range msgs {
		assert.Equal(t, pstgo.KindMessage, m.Kind())
		assert.False(t, m.IsEmbedded())
		bySubject[m.Subject(ctx)] = m
	}
	require.Contains(t, bySubject, "first")
	require.Contains(t, bySubject, "second")
	assert.True(t, bySubject["first"].IsRead(ctx))
	assert.False(t, bySubject["second"].IsRead(ctx))

	// Direct lookup by NID returns the same message.
	direct, err := f.Message(ctx, bySubject["first"].NID())
	require.NoError(t, err)
	assert.Equal(t, "first", direct.Subject(ctx))

	assoc := collect(t, inbox.AssociatedMessages(ctx))
	require.Len(t, assoc, 1)
	assert.Equal(t, "view", assoc[0].Subject(ctx))
	assert.Equal(t, "IPM.Microsoft.FolderDesign.NamedView", assoc[0].MessageClass(ctx))
}

func TestFolder_RestartableSequences(t *testing.T) {
	ctx := context.Background()
	f := openMailbox(t, treeMailbox(), ndb.FormatANSI, ndb.CryptNone)

	root, err := f.RootFolder(ctx)
	require.NoError(t, err)

	seq := root.Folders(ctx)
	first := collect(t, seq)
	second := collect(t, seq)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].NID(), second[i].NID())
	}

	// Early break stops iteration.
	n := 0
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

// brokenHierarchy lays out a root folder whose hierarchy table lists a
// missing folder between two good ones.
func brokenHierarchy(t *testing.T, opts ...pstgo.Option) *pstgo.File {
	t.Helper()
	b := testutil.NewBuilder(ndb.FormatUnicode, ndb.CryptPermute)

	good1 := b.LocalNID(ndb.NIDTypeNormalFolder)
	missing := b.LocalNID(ndb.NIDTypeNormalFolder)
	good2 := b.LocalNID(ndb.NIDTypeNormalFolder)

	store := testutil.NewPropertyContext().Add(uint32(pstgo.TagDisplayName), testutil.Unicode("Broken"))
	data, sub := store.Encode(b).Store(b)
	b.AddNode(ndb.NIDMessageStore, data, sub, 0)

	addFolder := func(nid ndb.NID, name string, children ...ndb.NID) {
		pc := testutil.NewPropertyContext().
			Add(uint32(pstgo.TagDisplayName), testutil.Unicode(name)).
			Add(uint32(pstgo.TagSubfolders), testutil.Bool(len(children) > 0))
		data, sub := pc.Encode(b).Store(b)
		b.AddNode(nid, data, sub, ndb.NIDRootFolder)

		tc := testutil.NewTableContext(uint32(pstgo.TagDisplayName))
		for _, c := range children {
			tc.AddRow(uint32(c), map[uint32][]byte{uint32(pstgo.TagDisplayName): testutil.Unicode("child")})
		}
		data, sub = tc.Encode(b).Store(b)
		b.AddNode(nid.WithType(ndb.NIDTypeHierarchyTable), data, sub, nid)
	}
	addFolder(ndb.NIDRootFolder, "Root", good1, missing, good2)
	addFolder(good1, "A")
	addFolder(good2, "B")

	img := b.Build()
	f, err := pstgo.Open(context.Background(), pstgo.Bytes(img.Data), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFolder_BrokenChildContinues(t *testing.T) {
	ctx := context.Background()
	mc := &pstgo.BasicMetricsCollector{}
	f := brokenHierarchy(t, pstgo.WithMetricsCollector(mc))

	root, err := f.RootFolder(ctx)
	require.NoError(t, err)

	var names []string
	var errs []error
	for sub, err := range root.Folders(ctx) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		names = append(names, sub.DisplayName(ctx))
	}
	assert.ElementsMatch(t, []string{"A", "B"}, names)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], pstgo.ErrNotFound)
	assert.Equal(t, int64(1), mc.GetStats().RowErrors)

	// Contents tables were never written; the folder is simply empty.
	assert.Empty(t, collect(t, root.Messages(ctx)))
	n, err := root.MessageCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
