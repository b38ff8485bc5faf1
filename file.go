package pstgo

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/pstgo/blobstore"
	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"golang.org/x/sync/singleflight"
)

// File is an open PST or OST file.
//
// Elements read from a File are cached per generation. Clear starts a new
// generation; elements of an older generation, and all elements after
// Close, fail with ErrInvalidState. A File is safe for concurrent use.
type File struct {
	src      Source
	blob     blobstore.Blob
	ownsBlob bool
	db       *ndb.Database
	opts     options
	logger   *Logger

	closed atomic.Bool

	// decoded holds property and table contexts by decodeKey.
	decoded sync.Map
	sf      singleflight.Group
}

// Info describes the container.
type Info struct {
	// Client is "pst" or "ost".
	Client string
	// Width is "ansi" or "unicode".
	Width    string
	Version  uint16
	PageSize int
	// Crypt is the block encoding: "none", "permute" or "cyclic".
	Crypt string
	Size  int64
}

// Open opens a file for reading.
func Open(ctx context.Context, src Source, optFns ...Option) (*File, error) {
	o := applyOptions(optFns)
	start := time.Now()

	f, err := open(ctx, src, o)
	o.metricsCollector.RecordOpen(time.Since(start), err)
	if err != nil {
		o.logger.LogOpen(ctx, src.String(), "", 0, err)
		return nil, err
	}
	o.logger.LogOpen(ctx, src.String(), f.db.Format().String(), time.Since(start), nil)
	return f, nil
}

func open(ctx context.Context, src Source, o options) (*File, error) {
	blob, owns, err := src.open(o)
	if err != nil {
		return nil, translateError("open", 0, fmt.Errorf("%w: %w", ndb.ErrIO, err))
	}

	db, err := ndb.Open(ctx, blob, o.ndbOptions())
	if err != nil {
		if owns {
			_ = blob.Close()
		}
		return nil, translateError("open", 0, err)
	}

	return &File{
		src:      src,
		blob:     blob,
		ownsBlob: owns,
		db:       db,
		opts:     o,
		logger:   o.logger.WithPath(src.String()),
	}, nil
}

// Close releases the byte source. Elements fail with ErrInvalidState
// afterwards. Close is idempotent.
func (f *File) Close() error {
	if f == nil || !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	f.db.Reset()
	f.decoded.Clear()
	if f.ownsBlob {
		return f.blob.Close()
	}
	return nil
}

// Clear drops all caches and starts a new generation. Elements read
// before Clear fail with ErrInvalidState.
func (f *File) Clear(ctx context.Context) error {
	if f.closed.Load() {
		return newError(ErrorKindInvalidState, "clear", 0, nil)
	}
	gen := f.db.Reset()
	f.decoded.Clear()
	f.logger.LogClear(ctx, gen)
	return nil
}

// Info returns the container description.
func (f *File) Info() Info {
	h := f.db.Header()
	return Info{
		Client:   h.Client.String(),
		Width:    h.Format.Width.String(),
		Version:  h.Format.Version,
		PageSize: h.Format.PageSize,
		Crypt:    h.Crypt.String(),
		Size:     f.blob.Size(),
	}
}

// Path returns the path of a file opened with Local.
func (f *File) Path() (string, error) {
	if f.src.kind != sourceLocal {
		return "", newError(ErrorKindInvalidOperation, "path", 0, fmt.Errorf("file was not opened from a path"))
	}
	return f.src.path, nil
}

// Stream returns the stream of a file opened with Stream.
func (f *File) Stream() (io.ReadSeeker, error) {
	if f.src.kind != sourceStream {
		return nil, newError(ErrorKindInvalidOperation, "stream", 0, fmt.Errorf("file was not opened from a stream"))
	}
	return f.src.stream, nil
}

// RootFolder returns the root of the folder hierarchy.
func (f *File) RootFolder(ctx context.Context) (*Folder, error) {
	return f.Folder(ctx, uint32(ndb.NIDRootFolder))
}

// Folder returns the folder with the given node id.
func (f *File) Folder(ctx context.Context, nid uint32) (*Folder, error) {
	e, err := f.topLevel(ctx, KindFolder, ndb.NID(nid))
	if err != nil {
		return nil, translateError("folder", ndb.NID(nid), err)
	}
	return &Folder{element: e}, nil
}

// Message returns the top-level message with the given node id.
func (f *File) Message(ctx context.Context, nid uint32) (*Message, error) {
	e, err := f.topLevel(ctx, KindMessage, ndb.NID(nid))
	if err != nil {
		return nil, translateError("message", ndb.NID(nid), err)
	}
	return &Message{element: e}, nil
}

// MessageStore returns the store properties.
func (f *File) MessageStore(ctx context.Context) (*MessageStore, error) {
	e, err := f.topLevel(ctx, KindStore, ndb.NIDMessageStore)
	if err != nil {
		return nil, translateError("store", ndb.NIDMessageStore, err)
	}
	return &MessageStore{element: e}, nil
}

// NamedProperties returns the name-to-id map.
func (f *File) NamedProperties(ctx context.Context) (*NameMap, error) {
	gen, err := f.generation()
	if err != nil {
		return nil, err
	}
	v, err := f.cached(ctx, decodeKey{gen: gen, kind: decodeNames, nid: ndb.NIDNameToIDMap}, "namemap", func() (any, error) {
		return ltp.ReadNameMap(ctx, f.db)
	})
	if err != nil {
		return nil, translateError("named properties", ndb.NIDNameToIDMap, err)
	}
	return &NameMap{m: v.(*ltp.NameMap)}, nil
}

// generation returns the current generation or ErrInvalidState once
// the file is closed.
func (f *File) generation() (uint64, error) {
	if f.closed.Load() {
		return 0, newError(ErrorKindInvalidState, "file", 0, nil)
	}
	return f.db.Generation(), nil
}

// check validates an element's generation.
func (f *File) check(gen uint64, op string, nid ndb.NID) error {
	if f.closed.Load() || f.db.Generation() != gen {
		return newError(ErrorKindInvalidState, op, nid, nil)
	}
	return nil
}

func (f *File) topLevel(ctx context.Context, kind Kind, nid ndb.NID) (element, error) {
	gen, err := f.generation()
	if err != nil {
		return element{}, err
	}
	return f.newElementAt(ctx, gen, kind, nid)
}

// newElementAt resolves a top-level node and decodes its properties.
func (f *File) newElementAt(ctx context.Context, gen uint64, kind Kind, nid ndb.NID) (element, error) {
	node, err := f.db.Node(ctx, nid)
	if err != nil {
		return element{}, err
	}
	return f.newElement(ctx, gen, kind, node)
}

func (f *File) newElement(ctx context.Context, gen uint64, kind Kind, node ndb.Node) (element, error) {
	pc, err := f.propertyContext(ctx, gen, node)
	if err != nil {
		return element{}, err
	}
	return element{file: f, gen: gen, kind: kind, node: node, nid: node.NID, props: pcProps{pc: pc}}, nil
}

type decodeKind uint8

const (
	decodePC decodeKind = iota + 1
	decodeTC
	decodeNames
)

// decodeKey identifies a decoded context. Local nodes share NIDs across
// parents, and a decoded context resolves values through its node's
// subnode tree, so both BIDs take part in the key.
type decodeKey struct {
	gen  uint64
	kind decodeKind
	nid  ndb.NID
	data ndb.BID
	sub  ndb.BID
}

func (k decodeKey) String() string {
	return fmt.Sprintf("%d/%d/%d/%d/%d", k.gen, k.kind, k.nid, k.data, k.sub)
}

// cached decodes once per key across concurrent callers.
func (f *File) cached(ctx context.Context, key decodeKey, what string, decode func() (any, error)) (any, error) {
	if v, ok := f.decoded.Load(key); ok {
		return v, nil
	}
	v, err, _ := f.sf.Do(key.String(), func() (any, error) {
		if v, ok := f.decoded.Load(key); ok {
			return v, nil
		}
		start := time.Now()
		v, err := decode()
		d := time.Since(start)
		f.opts.metricsCollector.RecordDecode(what, d, err)
		f.logger.LogDecode(ctx, what, uint32(key.nid), d, err)
		if err != nil {
			return nil, err
		}
		// A Clear during decoding must not publish into the new generation.
		if key.gen == f.db.Generation() {
			f.decoded.Store(key, v)
		}
		return v, nil
	})
	return v, err
}

func (f *File) propertyContext(ctx context.Context, gen uint64, node ndb.Node) (*ltp.PropertyContext, error) {
	key := decodeKey{gen: gen, kind: decodePC, nid: node.NID, data: node.DataBID, sub: node.SubnodeBID}
	v, err := f.cached(ctx, key, "pc", func() (any, error) {
		heap, err := ltp.OpenHeap(ctx, f.db, node)
		if err != nil {
			return nil, err
		}
		return ltp.DecodePropertyContext(ctx, heap, ltp.WithCodePage(f.opts.codePage))
	})
	if err != nil {
		return nil, err
	}
	return v.(*ltp.PropertyContext), nil
}

func (f *File) tableContext(ctx context.Context, gen uint64, node ndb.Node) (*ltp.TableContext, error) {
	key := decodeKey{gen: gen, kind: decodeTC, nid: node.NID, data: node.DataBID, sub: node.SubnodeBID}
	v, err := f.cached(ctx, key, "tc", func() (any, error) {
		heap, err := ltp.OpenHeap(ctx, f.db, node)
		if err != nil {
			return nil, err
		}
		return ltp.DecodeTableContext(ctx, heap, ltp.WithCodePage(f.opts.codePage))
	})
	if err != nil {
		return nil, err
	}
	return v.(*ltp.TableContext), nil
}
