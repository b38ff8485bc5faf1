package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/pstgo"
	"github.com/hupe1980/pstgo/blobstore"
	"github.com/hupe1980/pstgo/blobstore/minio"
	"github.com/hupe1980/pstgo/blobstore/s3"
	"github.com/hupe1980/pstgo/resource"
)

// config holds the flags shared by all commands.
type config struct {
	verify    bool
	cacheSize int64
	logLevel  string
	ioLimit   int64
	workers   int64
	codePage  int

	s3Region   string
	s3Endpoint string

	minioEndpoint  string
	minioAccessKey string
	minioSecretKey string
	minioSecure    bool

	stderr io.Writer
	rc     *resource.Controller
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *config) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	c := &config{stderr: stderr}
	fs.BoolVar(&c.verify, "verify", envBool("PSTGO_VERIFY", false), "verify page and block checksums")
	fs.Int64Var(&c.cacheSize, "cache", envInt64("PSTGO_CACHE", pstgo.DefaultBlockCacheSize), "block cache size in bytes, 0 disables")
	fs.StringVar(&c.logLevel, "log", envString("PSTGO_LOG", "warn"), "log level: debug, info, warn, error")
	fs.Int64Var(&c.ioLimit, "io-limit", envInt64("PSTGO_IO_LIMIT", 0), "read throughput limit in bytes per second, 0 is unlimited")
	fs.Int64Var(&c.workers, "workers", envInt64("PSTGO_WORKERS", 4), "parallel attachment exports")
	fs.IntVar(&c.codePage, "codepage", int(envInt64("PSTGO_CODEPAGE", 1252)), "code page of 8-bit strings without one")

	fs.StringVar(&c.s3Region, "s3-region", envString("PSTGO_S3_REGION", ""), "S3 region")
	fs.StringVar(&c.s3Endpoint, "s3-endpoint", envString("PSTGO_S3_ENDPOINT", ""), "S3-compatible endpoint URL")

	fs.StringVar(&c.minioEndpoint, "minio-endpoint", envString("PSTGO_MINIO_ENDPOINT", "localhost:9000"), "MinIO endpoint")
	fs.StringVar(&c.minioAccessKey, "minio-access-key", envString("PSTGO_MINIO_ACCESS_KEY", ""), "MinIO access key")
	fs.StringVar(&c.minioSecretKey, "minio-secret-key", envString("PSTGO_MINIO_SECRET_KEY", ""), "MinIO secret key")
	fs.BoolVar(&c.minioSecure, "minio-secure", envBool("PSTGO_MINIO_SECURE", false), "use TLS for MinIO")
	return fs, c
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func (c *config) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.logLevel)); err != nil {
		return slog.LevelWarn
	}
	return l
}

// controller returns the resource controller shared by reads and exports.
func (c *config) controller() *resource.Controller {
	if c.rc == nil {
		c.rc = resource.NewController(resource.Config{
			MaxWorkers:         max(c.workers, 1),
			IOLimitBytesPerSec: c.ioLimit,
		})
	}
	return c.rc
}

func (c *config) options(rc *resource.Controller) []pstgo.Option {
	return []pstgo.Option{
		pstgo.WithVerifyChecksums(c.verify),
		pstgo.WithBlockCacheSize(c.cacheSize),
		pstgo.WithLogger(pstgo.NewLogger(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: c.level()}))),
		pstgo.WithResourceController(rc),
		pstgo.WithDefaultCodePage(c.codePage),
	}
}

// store returns the blob store and key named by target. A local target
// is a directory and yields an empty key.
func (c *config) store(ctx context.Context, target string) (blobstore.BlobStore, string, error) {
	switch {
	case strings.HasPrefix(target, "s3://"):
		bucket, key, err := s3.ParseURL(target)
		if err != nil {
			return nil, "", err
		}
		st, err := s3.New(ctx, bucket, func(o *s3.Options) {
			o.Region = c.s3Region
			if c.s3Endpoint != "" {
				o.Endpoint = c.s3Endpoint
				o.UsePathStyle = true
			}
		})
		if err != nil {
			return nil, "", err
		}
		return st, key, nil
	case strings.HasPrefix(target, "minio://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(target, "minio://"), "/")
		if !ok || bucket == "" {
			return nil, "", fmt.Errorf("not a minio://bucket/key url: %q", target)
		}
		st, err := minio.Connect(c.minioEndpoint, c.minioAccessKey, c.minioSecretKey, c.minioSecure, bucket, "")
		if err != nil {
			return nil, "", err
		}
		return st, key, nil
	default:
		return blobstore.NewLocalStore(target), "", nil
	}
}

// open opens the mailbox named by target. The returned func closes the
// file and any remote blob.
func (c *config) open(ctx context.Context, target string) (*pstgo.File, func(), error) {
	rc := c.controller()
	if !strings.Contains(target, "://") {
		f, err := pstgo.Open(ctx, pstgo.Local(target), c.options(rc)...)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}

	st, key, err := c.store(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	blob, err := st.Open(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", target, err)
	}
	f, err := pstgo.Open(ctx, pstgo.Remote(blob, target), c.options(rc)...)
	if err != nil {
		_ = blob.Close()
		return nil, nil, err
	}
	return f, func() {
		_ = f.Close()
		_ = blob.Close()
	}, nil
}

// parse parses args and checks the number of positional arguments.
func parse(fs *flag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	rest := fs.Args()
	if len(rest) < minArgs || len(rest) > maxArgs {
		fmt.Fprintf(fs.Output(), "%s: wrong number of arguments\n", fs.Name())
		fs.Usage()
		return nil, errUsage
	}
	return rest, nil
}
