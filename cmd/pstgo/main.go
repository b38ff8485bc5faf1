// Pstgo is a command line tool for inspecting PST and OST mailbox files
// and exporting their attachments.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
)

// version is the tool version printed by "pstgo version".
const version = "0.1.0"

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintf(w, `pstgo v%s
PST/OST mailbox inspector

Usage:
  pstgo info    [flags] <file>             Show container and store summary
  pstgo stats   [flags] <file>             Count nodes by type
  pstgo tree    [flags] <file>             Print the folder tree
  pstgo ls      [flags] <file> [folder]    List messages of a folder
  pstgo props   [flags] <file> <nid>       Dump the properties of a folder or message
  pstgo extract [flags] <file> <dest>      Save attachments to a directory, s3:// or minio:// URL
  pstgo version                            Print the version

<file> is a local path, s3://bucket/key or minio://bucket/key.
Run "pstgo <command> -h" for the flags of a command. Every flag also
reads a PSTGO_* environment variable, e.g. PSTGO_VERIFY=true.
`, version)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "pstgo:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		usage(stderr)
		return errUsage
	}

	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	case "version", "-v", "--version":
		fmt.Fprintln(stdout, version)
		return nil
	case "info":
		return cmdInfo(ctx, args, stdout, stderr)
	case "stats":
		return cmdStats(ctx, args, stdout, stderr)
	case "tree":
		return cmdTree(ctx, args, stdout, stderr)
	case "ls":
		return cmdLs(ctx, args, stdout, stderr)
	case "props":
		return cmdProps(ctx, args, stdout, stderr)
	case "extract":
		return cmdExtract(ctx, args, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		usage(stderr)
		return errUsage
	}
}
