// Package testutil builds synthetic PST and OST containers for tests.
//
// This package is intended for use in tests only. It writes every layer of
// the format from scratch so that readers can be tested without binary
// fixtures.
//
// # Node database
//
//	b := testutil.NewBuilder(ndb.FormatUnicode, ndb.CryptPermute)
//	data := b.AddData(payload)          // one block or an XBLOCK tree
//	sub := b.AddSubnodes(entries)       // SLBLOCK or SIBLOCK
//	b.AddNode(nid, data, sub, parent)
//	img := b.Build()
//
// # Lists, tables and properties
//
//	pc := testutil.NewPropertyContext()
//	pc.Add(0x0037001F, testutil.Unicode("Hello"))
//	node := pc.Encode(b)               // heap blocks and subnodes
//
// # Mailboxes
//
//	img := testutil.MinimalMailbox().Build(ndb.FormatANSI, ndb.CryptNone)
package testutil
