package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hupe1980/pstgo"
	"github.com/hupe1980/pstgo/codec"
)

// propRecord is one exported property.
type propRecord struct {
	Tag   string `json:"tag"`
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Value any    `json:"value"`
	Text  string `json:"-"`
}

func cmdProps(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, cfg := newFlagSet("props", stderr)
	format := fs.String("format", envString("PSTGO_FORMAT", "json"), "output format: json or csv")
	codecName := fs.String("codec", envString("PSTGO_CODEC", codec.Default.Name()), "json codec: go-json or json")
	binary := fs.Bool("binary", false, "include binary and object properties")
	rest, err := parse(fs, args, 2, 2)
	if err != nil {
		return err
	}
	nid, err := strconv.ParseUint(rest[1], 0, 32)
	if err != nil {
		return fmt.Errorf("bad nid %q: %w", rest[1], err)
	}

	f, closeFn, err := cfg.open(ctx, rest[0])
	if err != nil {
		return err
	}
	defer closeFn()

	elem, err := element(ctx, f, uint32(nid))
	if err != nil {
		return err
	}
	records, err := propRecords(ctx, f, elem, *binary)
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}

	switch *format {
	case "json":
		c, ok := codec.ByName(*codecName)
		if !ok {
			return fmt.Errorf("unknown codec %q", *codecName)
		}
		var out []byte
		if ind, ok := c.(codec.Indenter); ok {
			out, err = ind.MarshalIndent(records, "", "  ")
		} else {
			out, err = c.Marshal(records)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(out))
		return err
	case "csv":
		w := csv.NewWriter(stdout)
		_ = w.Write([]string{"tag", "type", "name", "value"})
		for _, r := range records {
			_ = w.Write([]string{r.Tag, r.Type, r.Name, r.Text})
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

// element opens the folder, message or store named by nid.
func element(ctx context.Context, f *pstgo.File, nid uint32) (pstgo.Element, error) {
	if nid == 0x21 {
		return f.MessageStore(ctx)
	}
	switch pstgo.NodeType(nid & 0x1F) {
	case pstgo.NodeTypeFolder, pstgo.NodeTypeSearchFolder:
		return f.Folder(ctx, nid)
	case pstgo.NodeTypeMessage, pstgo.NodeTypeAssocMessage:
		return f.Message(ctx, nid)
	default:
		return nil, fmt.Errorf("node 0x%X is not a folder or message", nid)
	}
}

func propRecords(ctx context.Context, f *pstgo.File, e pstgo.Element, binary bool) ([]propRecord, error) {
	props, err := e.Properties(ctx)

	names, nerr := f.NamedProperties(ctx)
	if nerr != nil {
		names = nil
	}

	records := make([]propRecord, 0, len(props))
	for _, p := range props {
		base := p.Type() &^ pstgo.TypeMulti
		if !binary && (base == pstgo.TypeBinary || base == pstgo.TypeObject) {
			continue
		}
		r := propRecord{Tag: p.Tag.String(), Type: p.Type().String(), Text: p.Format()}
		if v, verr := p.Value(); verr == nil {
			r.Value = v
		} else {
			r.Value = r.Text
		}
		if p.Tag.IsNamed() && names != nil {
			if np, ok := names.Lookup(p.Tag.ID()); ok {
				r.Name = np.String()
			}
		}
		records = append(records, r)
	}
	return records, err
}
