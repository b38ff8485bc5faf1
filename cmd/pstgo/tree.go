package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/pstgo"
)

func cmdTree(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, cfg := newFlagSet("tree", stderr)
	showNID := fs.Bool("nid", envBool("PSTGO_SHOW_NID", false), "print node ids")
	rest, err := parse(fs, args, 1, 1)
	if err != nil {
		return err
	}

	f, closeFn, err := cfg.open(ctx, rest[0])
	if err != nil {
		return err
	}
	defer closeFn()

	root, err := f.RootFolder(ctx)
	if err != nil {
		return err
	}
	return walkFolders(ctx, root, "", func(p string, depth int, folder *pstgo.Folder) error {
		name := folder.DisplayName(ctx)
		if folder.IsRoot() {
			name = "/"
		}
		line := fmt.Sprintf("%s%s (%d", strings.Repeat("  ", depth), name, folder.ContentCount(ctx))
		if unread := folder.UnreadCount(ctx); unread > 0 {
			line += fmt.Sprintf(", %d unread", unread)
		}
		line += ")"
		if *showNID {
			line += fmt.Sprintf(" [0x%X]", folder.NID())
		}
		_, err := fmt.Fprintln(stdout, line)
		return err
	}, stderr)
}

// walkFolders visits folder and its descendants depth first. Subfolders
// that fail to decode are reported to errw and skipped.
func walkFolders(ctx context.Context, folder *pstgo.Folder, p string, fn func(p string, depth int, f *pstgo.Folder) error, errw io.Writer) error {
	var walk func(f *pstgo.Folder, p string, depth int) error
	walk = func(f *pstgo.Folder, p string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p, depth, f); err != nil {
			return err
		}
		for sub, err := range f.Folders(ctx) {
			if err != nil {
				fmt.Fprintf(errw, "warning: %s: %v\n", displayPath(p), err)
				continue
			}
			if err := walk(sub, joinPath(p, sub.DisplayName(ctx)), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(folder, p, 0)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return "/" + p
}

// findFolder resolves a slash separated path of display names below the
// root. Names match case-insensitively.
func findFolder(ctx context.Context, root *pstgo.Folder, p string) (*pstgo.Folder, error) {
	cur := root
	for _, name := range strings.Split(strings.Trim(p, "/"), "/") {
		if name == "" {
			continue
		}
		var next *pstgo.Folder
		for sub, err := range cur.Folders(ctx) {
			if err != nil {
				continue
			}
			if strings.EqualFold(sub.DisplayName(ctx), name) {
				next = sub
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("folder %q: %w", p, pstgo.ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}

func cmdLs(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, cfg := newFlagSet("ls", stderr)
	assoc := fs.Bool("assoc", false, "list associated messages instead")
	rest, err := parse(fs, args, 1, 2)
	if err != nil {
		return err
	}

	f, closeFn, err := cfg.open(ctx, rest[0])
	if err != nil {
		return err
	}
	defer closeFn()

	root, err := f.RootFolder(ctx)
	if err != nil {
		return err
	}
	folder := root
	if len(rest) == 2 {
		if folder, err = findFolder(ctx, root, rest[1]); err != nil {
			return err
		}
	}

	seq := folder.Messages(ctx)
	if *assoc {
		seq = folder.AssociatedMessages(ctx)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NID\tDATE\tFROM\tSUBJECT\tSIZE\tATT")
	for msg, err := range seq {
		if err != nil {
			fmt.Fprintf(stderr, "warning: %v\n", err)
			continue
		}
		date := "-"
		if t := msg.Date(ctx); !t.IsZero() {
			date = t.UTC().Format("2006-01-02 15:04")
		}
		att := ""
		if msg.HasAttachments(ctx) {
			att = "*"
		}
		fmt.Fprintf(tw, "0x%X\t%s\t%s\t%s\t%s\t%s\n",
			msg.NID(), date, msg.SenderName(ctx), msg.Subject(ctx), humanize.IBytes(uint64(max(msg.Size(ctx), 0))), att)
	}
	return tw.Flush()
}
