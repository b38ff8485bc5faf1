package main

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/pstgo"
	"github.com/hupe1980/pstgo/blobstore"
	"github.com/hupe1980/pstgo/resource"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/errgroup"
)

// compressors maps -compress values to the file extension and writer.
var compressors = map[string]struct {
	ext       string
	newWriter func(io.Writer) (io.WriteCloser, error)
}{
	"none": {"", func(w io.Writer) (io.WriteCloser, error) { return nopCloser{w}, nil }},
	"zstd": {".zst", func(w io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(w) }},
	"lz4":  {".lz4", func(w io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(w), nil }},
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type extractJob struct {
	name string
	att  *pstgo.Attachment
}

func cmdExtract(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, cfg := newFlagSet("extract", stderr)
	folderPath := fs.String("folder", envString("PSTGO_FOLDER", ""), "only this folder and its subfolders")
	compress := fs.String("compress", envString("PSTGO_COMPRESS", "none"), "compress saved files: none, zstd or lz4")
	embedded := fs.Bool("embedded", envBool("PSTGO_EMBEDDED", true), "descend into attached messages")
	hidden := fs.Bool("hidden", false, "include hidden attachments")
	rest, err := parse(fs, args, 2, 2)
	if err != nil {
		return err
	}
	if _, ok := compressors[*compress]; !ok {
		return fmt.Errorf("unknown compression %q", *compress)
	}

	f, closeFn, err := cfg.open(ctx, rest[0])
	if err != nil {
		return err
	}
	defer closeFn()

	store, prefix, err := cfg.store(ctx, rest[1])
	if err != nil {
		return err
	}

	root, err := f.RootFolder(ctx)
	if err != nil {
		return err
	}
	start := root
	if *folderPath != "" {
		if start, err = findFolder(ctx, root, *folderPath); err != nil {
			return err
		}
	}

	var jobs []extractJob
	var collectAtts func(msg *pstgo.Message, dir string)
	collectAtts = func(msg *pstgo.Message, dir string) {
		used := make(map[string]bool)
		for att, err := range msg.Attachments(ctx) {
			if err != nil {
				fmt.Fprintf(stderr, "warning: %v\n", err)
				continue
			}
			if att.IsHidden(ctx) && !*hidden {
				continue
			}
			switch {
			case att.IsFile(ctx):
				name := pstgo.SafeFilename(att.Filename(ctx))
				if name == "" {
					name = fmt.Sprintf("attachment-%X", att.NID())
				}
				jobs = append(jobs, extractJob{name: path.Join(prefix, dir, uniqueName(used, name)), att: att})
			case att.IsEmbeddedMessage(ctx) && *embedded:
				inner, err := att.EmbeddedMessage(ctx)
				if err != nil {
					fmt.Fprintf(stderr, "warning: %v\n", err)
					continue
				}
				collectAtts(inner, path.Join(dir, fmt.Sprintf("embedded-%X", att.NID())))
			}
		}
	}

	err = walkFolders(ctx, start, "", func(p string, _ int, folder *pstgo.Folder) error {
		for msg, err := range folder.Messages(ctx) {
			if err != nil {
				fmt.Fprintf(stderr, "warning: %s: %v\n", displayPath(p), err)
				continue
			}
			if msg.HasAttachments(ctx) {
				collectAtts(msg, path.Join(safePath(p), fmt.Sprintf("%X", msg.NID())))
			}
		}
		return nil
	}, stderr)
	if err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		saved  int
		failed int
		total  int64
	)
	rc := cfg.controller()
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		if err := rc.AcquireWorker(gctx); err != nil {
			break
		}
		g.Go(func() error {
			defer rc.ReleaseWorker()
			n, err := saveAttachment(gctx, rc, store, job, *compress)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				fmt.Fprintf(stderr, "warning: %s: %v\n", job.name, err)
				return nil
			}
			saved++
			total += n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "saved %d attachments (%s)", saved, humanize.IBytes(uint64(total)))
	if failed > 0 {
		fmt.Fprintf(stdout, ", %d failed", failed)
	}
	fmt.Fprintln(stdout)
	return ctx.Err()
}

// safePath sanitizes each component of a folder path.
func safePath(p string) string {
	if p == "" {
		return ""
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if parts[i] = pstgo.SafeFilename(part); parts[i] == "" {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, "/")
}

// uniqueName reserves name in used. A taken name gets a numeric suffix
// before its extension: report.pdf, report-2.pdf, report-3.pdf.
func uniqueName(used map[string]bool, name string) string {
	ext := path.Ext(name)
	if ext == name {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	out := name
	for n := 2; used[out]; n++ {
		out = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
	used[out] = true
	return out
}

// saveAttachment writes one attachment and returns its uncompressed size.
func saveAttachment(ctx context.Context, rc *resource.Controller, store blobstore.BlobStore, job extractJob, compress string) (int64, error) {
	c := compressors[compress]
	w, err := store.Create(ctx, job.name+c.ext)
	if err != nil {
		return 0, err
	}
	cw, err := c.newWriter(resource.NewRateLimitedWriter(ctx, w, rc))
	if err != nil {
		_ = w.Close()
		return 0, err
	}
	n, err := job.att.WriteToContext(ctx, cw)
	if cerr := cw.Close(); err == nil {
		err = cerr
	}
	if werr := w.Close(); err == nil {
		err = werr
	}
	return n, err
}
