package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/pstgo"
)

func cmdInfo(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, cfg := newFlagSet("info", stderr)
	rest, err := parse(fs, args, 1, 1)
	if err != nil {
		return err
	}

	f, closeFn, err := cfg.open(ctx, rest[0])
	if err != nil {
		return err
	}
	defer closeFn()

	info := f.Info()
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", rest[0])
	fmt.Fprintf(tw, "Type:\t%s\n", info.Client)
	fmt.Fprintf(tw, "Format:\t%s (version %d, %d byte pages)\n", info.Width, info.Version, info.PageSize)
	fmt.Fprintf(tw, "Encoding:\t%s\n", info.Crypt)
	fmt.Fprintf(tw, "Size:\t%s\n", humanize.IBytes(uint64(info.Size)))

	store, err := f.MessageStore(ctx)
	if err != nil {
		fmt.Fprintf(tw, "Store:\t<%v>\n", err)
	} else {
		fmt.Fprintf(tw, "Store:\t%s\n", store.DisplayName(ctx))
	}

	names, err := f.NamedProperties(ctx)
	if err == nil {
		fmt.Fprintf(tw, "Named properties:\t%s\n", humanize.Comma(int64(names.Len())))
	}
	return tw.Flush()
}

var statTypes = []struct {
	name string
	typ  pstgo.NodeType
}{
	{"folders", pstgo.NodeTypeFolder},
	{"search folders", pstgo.NodeTypeSearchFolder},
	{"messages", pstgo.NodeTypeMessage},
	{"associated messages", pstgo.NodeTypeAssocMessage},
	{"hierarchy tables", pstgo.NodeTypeHierarchyTable},
	{"contents tables", pstgo.NodeTypeContentsTable},
	{"internal", pstgo.NodeTypeInternal},
}

func cmdStats(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, cfg := newFlagSet("stats", stderr)
	rest, err := parse(fs, args, 1, 1)
	if err != nil {
		return err
	}

	f, closeFn, err := cfg.open(ctx, rest[0])
	if err != nil {
		return err
	}
	defer closeFn()

	idx, err := f.NodeIndex(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "nodes\t%s\t\n", humanize.Comma(int64(idx.Len())))
	for _, st := range statTypes {
		fmt.Fprintf(tw, "%s\t%s\t\n", st.name, humanize.Comma(int64(idx.Count(st.typ))))
	}
	if orphans := idx.Orphans(); len(orphans) > 0 {
		fmt.Fprintf(tw, "missing parents\t%d\t\n", len(orphans))
	}
	return tw.Flush()
}
