// Package pstgo reads Outlook PST and OST mailbox files.
//
// A mailbox file is a stack of three layers. The node database (NDB)
// maps node and block ids to bytes through two B-trees. The lists,
// tables and properties layer (LTP) turns a node's bytes into a heap,
// a property context or a table context. On top sit the folders,
// messages, attachments and recipients this package exposes.
//
// # Quick Start
//
// Local file:
//
//	ctx := context.Background()
//	f, _ := pstgo.Open(ctx, pstgo.Local("mailbox.pst"))
//	defer f.Close()
//
// Object storage:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("archives/"))
//	blob, _ := store.Open(ctx, "mailbox.ost")
//	f, _ := pstgo.Open(ctx, pstgo.Remote(blob, "mailbox.ost"))
//
// # Walking folders
//
// Children are listed as restartable sequences. A child that fails to
// decode yields its error and iteration continues:
//
//	root, _ := f.RootFolder(ctx)
//	for sub, err := range root.Folders(ctx) {
//	    if err != nil {
//	        continue
//	    }
//	    fmt.Println(sub.DisplayName(ctx), sub.ContentCount(ctx))
//	}
//
// # Messages and attachments
//
//	for msg, err := range folder.Messages(ctx) {
//	    fmt.Println(msg.Subject(ctx), msg.SenderName(ctx), msg.Date(ctx))
//	    for att, err := range msg.Attachments(ctx) {
//	        _ = att.Save(ctx, blobstore.NewLocalStore("out"), "")
//	    }
//	}
//
// # Properties
//
// Every element exposes its raw MAPI properties. Typed helpers return
// zero values for absent properties; Property distinguishes absence
// (ErrNotFound) from damage (ErrCorrupt):
//
//	p, err := msg.Property(ctx, pstgo.TagSubject)
//	if errors.Is(err, pstgo.ErrNotFound) { ... }
//
// Named properties (ids 0x8000 and up) resolve through File.NamedProperties.
//
// # Lifetime
//
// Elements belong to the generation of the file they were read from.
// File.Clear drops every decoded structure and starts a new generation;
// elements from the old one fail with ErrInvalidState. File.Close ends
// the last generation.
//
// # Concurrency
//
// A File and its elements are safe for concurrent use. Reads of the
// underlying source are serialized; decoded blocks, pages and contexts
// are cached and shared.
package pstgo
