package ndb

import (
	"context"
	"encoding/binary"
	"sort"
)

// keyAt returns the first IDSize bytes of an entry as the search key.
func (f Format) keyAt(e []byte) uint64 {
	if f.IsUnicode() {
		return binary.LittleEndian.Uint64(e)
	}
	return uint64(binary.LittleEndian.Uint32(e))
}

func (f Format) brefAt(e []byte) BREF {
	if f.IsUnicode() {
		return BREF{BID: BID(binary.LittleEndian.Uint64(e)), IB: binary.LittleEndian.Uint64(e[8:])}
	}
	return BREF{BID: BID(binary.LittleEndian.Uint32(e)), IB: uint64(binary.LittleEndian.Uint32(e[4:]))}
}

// lookup descends from root to the leaf entry with the given key.
func (db *Database) lookup(ctx context.Context, root BREF, ptype PageType, key uint64) ([]byte, error) {
	f := db.header.Format
	ref := root
	level := -1

	for depth := 0; ; depth++ {
		if depth >= db.opts.Limits.MaxTreeDepth {
			return nil, corruptf("%s deeper than %d levels", ptype, db.opts.Limits.MaxTreeDepth)
		}

		p, err := db.readBTPage(ctx, ref, ptype)
		if err != nil {
			return nil, err
		}
		if level >= 0 && p.level != level-1 {
			return nil, corruptf("%s page at %d: level %d below level %d", ptype, ref.IB, p.level, level)
		}
		level = p.level

		// Index of the first entry with a key greater than the target.
		i := sort.Search(p.count, func(i int) bool {
			return f.keyAt(p.entry(i)) > key
		})

		if p.level == 0 {
			if i == 0 || f.keyAt(p.entry(i-1)) != key {
				return nil, ErrNotFound
			}
			return p.entry(i - 1), nil
		}
		if i == 0 {
			return nil, ErrNotFound
		}
		ref = f.brefAt(p.entry(i - 1)[f.IDSize():])
	}
}

// walk visits every leaf entry in key order.
func (db *Database) walk(ctx context.Context, root BREF, ptype PageType, fn func(e []byte) error) error {
	return db.walkPage(ctx, root, ptype, -1, 0, fn)
}

func (db *Database) walkPage(ctx context.Context, ref BREF, ptype PageType, parentLevel, depth int, fn func(e []byte) error) error {
	if depth >= db.opts.Limits.MaxTreeDepth {
		return corruptf("%s deeper than %d levels", ptype, db.opts.Limits.MaxTreeDepth)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := db.readBTPage(ctx, ref, ptype)
	if err != nil {
		return err
	}
	if parentLevel >= 0 && p.level != parentLevel-1 {
		return corruptf("%s page at %d: level %d below level %d", ptype, ref.IB, p.level, parentLevel)
	}

	f := db.header.Format
	for i := 0; i < p.count; i++ {
		e := p.entry(i)
		if p.level == 0 {
			if err := fn(e); err != nil {
				return err
			}
			continue
		}
		if err := db.walkPage(ctx, f.brefAt(e[f.IDSize():]), ptype, p.level, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
