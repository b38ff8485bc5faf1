package pstgo

import (
	"context"
	"iter"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
)

// Folder is a mail folder. Its children are listed by the hierarchy,
// contents and associated contents tables, which share the folder's
// node index.
type Folder struct {
	element
}

// ContainerClass returns the folder class, e.g. "IPF.Note".
func (f *Folder) ContainerClass(ctx context.Context) string {
	return f.String(ctx, TagContainerClass)
}

// ContentCount returns the stored number of messages.
func (f *Folder) ContentCount(ctx context.Context) int {
	return int(f.Int32(ctx, TagContentCount))
}

// UnreadCount returns the stored number of unread messages.
func (f *Folder) UnreadCount(ctx context.Context) int {
	return int(f.Int32(ctx, TagContentUnreadCount))
}

// HasSubfolders reports the stored subfolder flag.
func (f *Folder) HasSubfolders(ctx context.Context) bool {
	return f.Bool(ctx, TagSubfolders)
}

// IsRoot reports the root folder.
func (f *Folder) IsRoot() bool { return f.node.NID == ndb.NIDRootFolder }

// Parent returns the parent folder. The root folder has none and fails
// with ErrNotFound.
func (f *Folder) Parent(ctx context.Context) (*Folder, error) {
	if err := f.check("folder.parent"); err != nil {
		return nil, err
	}
	e, err := f.file.db.ResolveNode(ctx, f.node.NID)
	if err != nil {
		return nil, translateError("folder.parent", f.node.NID, err)
	}
	if f.IsRoot() || e.ParentNID == 0 || e.ParentNID == f.node.NID {
		return nil, newError(ErrorKindNotFound, "folder.parent", f.node.NID, nil)
	}
	return f.file.Folder(ctx, uint32(e.ParentNID))
}

// Folders iterates the subfolders in hierarchy table order. A subfolder
// that fails to decode yields its error and iteration continues.
func (f *Folder) Folders(ctx context.Context) iter.Seq2[*Folder, error] {
	tc, err := f.childTable(ctx, ndb.NIDTypeHierarchyTable)
	if tc == nil {
		return emptySeq[Folder](err)
	}
	return rows(ctx, f.file, f.gen, "hierarchy", tc, func(row *ltp.Row) (*Folder, error) {
		e, err := f.file.newElementAt(ctx, f.gen, KindFolder, ndb.NID(row.ID))
		if err != nil {
			return nil, err
		}
		return &Folder{element: e}, nil
	})
}

// Messages iterates the messages in contents table order.
func (f *Folder) Messages(ctx context.Context) iter.Seq2[*Message, error] {
	return f.messages(ctx, ndb.NIDTypeContentsTable, "contents")
}

// AssociatedMessages iterates the folder's hidden messages, such as views
// and rules.
func (f *Folder) AssociatedMessages(ctx context.Context) iter.Seq2[*Message, error] {
	return f.messages(ctx, ndb.NIDTypeAssocContentsTable, "associated contents")
}

// MessageCount returns the number of rows of the contents table.
func (f *Folder) MessageCount(ctx context.Context) (int, error) {
	tc, err := f.childTable(ctx, ndb.NIDTypeContentsTable)
	if tc == nil {
		return 0, err
	}
	return tc.RowCount(), nil
}

func (f *Folder) messages(ctx context.Context, t ndb.NIDType, table string) iter.Seq2[*Message, error] {
	tc, err := f.childTable(ctx, t)
	if tc == nil {
		return emptySeq[Message](err)
	}
	return rows(ctx, f.file, f.gen, table, tc, func(row *ltp.Row) (*Message, error) {
		e, err := f.file.newElementAt(ctx, f.gen, KindMessage, ndb.NID(row.ID))
		if err != nil {
			return nil, err
		}
		return &Message{element: e}, nil
	})
}

// childTable returns the table of type t, nil without error when the
// folder has none.
func (f *Folder) childTable(ctx context.Context, t ndb.NIDType) (*ltp.TableContext, error) {
	if err := f.check("folder.table"); err != nil {
		return nil, err
	}
	tc, err := f.table(ctx, f.node.NID.WithType(t), false)
	if err != nil {
		return nil, translateError("folder.table", f.node.NID.WithType(t), err)
	}
	return tc, nil
}
