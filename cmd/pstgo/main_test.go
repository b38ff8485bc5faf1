package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture writes a mailbox with a nested folder, one message with a file
// attachment, a hidden attachment and an embedded message.
func fixture(t *testing.T) (path string, m *testutil.Mailbox) {
	t.Helper()
	m = testutil.MinimalMailbox()
	inbox := m.Root.Folders[0]
	inbox.Folders = []*testutil.Folder{{Name: "Projects"}}
	msg := inbox.Messages[0]
	msg.Unread = true
	msg.Attachments = append(msg.Attachments,
		&testutil.Attachment{
			Filename: "hidden.bin",
			Data:     []byte{1},
			Props:    []testutil.Prop{{Tag: 0x7FFE000B, Value: testutil.Bool(true)}},
		},
		&testutil.Attachment{
			Filename: "fwd.msg",
			Embedded: &testutil.Message{
				Subject:     "Inner",
				Attachments: []*testutil.Attachment{{Filename: "inner.txt", Data: []byte("inside")}},
			},
		},
	)
	img := m.Build(ndb.FormatUnicode, ndb.CryptPermute)

	path = filepath.Join(t.TempDir(), "mailbox.pst")
	require.NoError(t, os.WriteFile(path, img.Data, 0o600))
	return path, m
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Usage(t *testing.T) {
	_, stderr, err := runCmd(t)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "Usage:")

	_, stderr, err = runCmd(t, "frobnicate")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	stdout, _, err := runCmd(t, "help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pstgo extract")

	stdout, _, err = runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", stdout)

	_, _, err = runCmd(t, "info")
	assert.ErrorIs(t, err, errUsage)
}

func TestInfo(t *testing.T) {
	path, _ := fixture(t)

	stdout, _, err := runCmd(t, "info", "-verify", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "pst")
	assert.Contains(t, stdout, "unicode")
	assert.Contains(t, stdout, "permute")
	assert.Contains(t, stdout, "Personal Folders")
}

func TestInfo_MissingFile(t *testing.T) {
	_, _, err := runCmd(t, "info", filepath.Join(t.TempDir(), "nope.pst"))
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	path, _ := fixture(t)

	stdout, _, err := runCmd(t, "stats", path)
	require.NoError(t, err)
	assert.Regexp(t, `folders\s+3`, stdout)
	assert.Regexp(t, `messages\s+1`, stdout)
	assert.NotContains(t, stdout, "missing parents")
}

func TestTree(t *testing.T) {
	path, m := fixture(t)

	stdout, _, err := runCmd(t, "tree", "-nid", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "/ (0)")
	assert.Contains(t, stdout, "  Inbox (1, 1 unread)")
	assert.Contains(t, stdout, "    Projects (0)")
	assert.Contains(t, stdout, fmt.Sprintf("[0x%X]", uint32(m.Root.Folders[0].NID)))
}

func TestLs(t *testing.T) {
	path, m := fixture(t)

	stdout, _, err := runCmd(t, "ls", path, "inbox")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUBJECT")
	assert.Contains(t, stdout, "Hello")
	assert.Contains(t, stdout, fmt.Sprintf("0x%X", uint32(m.Root.Folders[0].Messages[0].NID)))

	_, _, err = runCmd(t, "ls", path, "Nowhere")
	assert.Error(t, err)
}

func TestProps(t *testing.T) {
	path, m := fixture(t)
	nid := fmt.Sprintf("0x%X", uint32(m.Root.Folders[0].Messages[0].NID))

	t.Run("JSON", func(t *testing.T) {
		for _, c := range []string{"go-json", "json"} {
			stdout, _, err := runCmd(t, "props", "-codec", c, path, nid)
			require.NoError(t, err)

			var records []map[string]any
			require.NoError(t, json.Unmarshal([]byte(stdout), &records), c)

			values := make(map[string]any)
			for _, r := range records {
				values[r["tag"].(string)] = r["value"]
			}
			assert.Equal(t, "Hello", values["0x0037001F"], c)
			assert.Equal(t, "Hello, Alice.", values["0x1000001F"], c)
		}
	})

	t.Run("CSV", func(t *testing.T) {
		stdout, _, err := runCmd(t, "props", "-format", "csv", path, nid)
		require.NoError(t, err)

		rows, err := csv.NewReader(bytes.NewBufferString(stdout)).ReadAll()
		require.NoError(t, err)
		require.NotEmpty(t, rows)
		assert.Equal(t, []string{"tag", "type", "name", "value"}, rows[0])
		assert.Contains(t, rows, []string{"0x0037001F", "PT_UNICODE", "", "Hello"})
	})

	t.Run("Store", func(t *testing.T) {
		stdout, _, err := runCmd(t, "props", path, "0x21")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Personal Folders")
	})

	t.Run("BadNID", func(t *testing.T) {
		_, _, err := runCmd(t, "props", path, "zzz")
		assert.Error(t, err)

		_, _, err = runCmd(t, "props", path, "0x61")
		assert.Error(t, err)
	})
}

func TestExtract(t *testing.T) {
	path, m := fixture(t)
	msg := m.Root.Folders[0].Messages[0]
	dir := fmt.Sprintf("Inbox/%X", uint32(msg.NID))
	embedded := fmt.Sprintf("%s/embedded-%X", dir, uint32(msg.Attachments[2].NID))

	tests := []struct {
		compress string
		ext      string
		decode   func(t *testing.T, b []byte) []byte
	}{
		{"none", "", func(_ *testing.T, b []byte) []byte { return b }},
		{"zstd", ".zst", func(t *testing.T, b []byte) []byte {
			dec, err := zstd.NewReader(nil)
			require.NoError(t, err)
			defer dec.Close()
			out, err := dec.DecodeAll(b, nil)
			require.NoError(t, err)
			return out
		}},
		{"lz4", ".lz4", func(t *testing.T, b []byte) []byte {
			out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
			require.NoError(t, err)
			return out
		}},
	}

	for _, tt := range tests {
		t.Run(tt.compress, func(t *testing.T) {
			dest := t.TempDir()
			stdout, stderr, err := runCmd(t, "extract", "-compress", tt.compress, "-workers", "2", path, dest)
			require.NoError(t, err, stderr)
			assert.Contains(t, stdout, "saved 2 attachments")

			read := func(name string) []byte {
				b, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name+tt.ext)))
				require.NoError(t, err)
				return tt.decode(t, b)
			}
			assert.Equal(t, []byte("hello"), read(dir+"/note.txt"))
			assert.Equal(t, []byte("inside"), read(embedded+"/inner.txt"))
			assert.NoFileExists(t, filepath.Join(dest, filepath.FromSlash(dir+"/hidden.bin"+tt.ext)))
		})
	}

	t.Run("HiddenWithoutEmbedded", func(t *testing.T) {
		dest := t.TempDir()
		stdout, _, err := runCmd(t, "extract", "-hidden", "-embedded=false", path, dest)
		require.NoError(t, err)
		assert.Contains(t, stdout, "saved 2 attachments")
		assert.FileExists(t, filepath.Join(dest, filepath.FromSlash(dir+"/hidden.bin")))
		assert.NoDirExists(t, filepath.Join(dest, filepath.FromSlash(embedded)))
	})

	t.Run("Folder", func(t *testing.T) {
		dest := t.TempDir()
		stdout, _, err := runCmd(t, "extract", "-folder", "Inbox/Projects", path, dest)
		require.NoError(t, err)
		assert.Contains(t, stdout, "saved 0 attachments")
	})

	t.Run("UnknownCompression", func(t *testing.T) {
		_, _, err := runCmd(t, "extract", "-compress", "rar", path, t.TempDir())
		assert.Error(t, err)
	})
}

func TestExtract_DuplicateNames(t *testing.T) {
	m := testutil.MinimalMailbox()
	msg := m.Root.Folders[0].Messages[0]
	msg.Attachments = append(msg.Attachments,
		&testutil.Attachment{Filename: "note.txt", Data: []byte("second")},
		&testutil.Attachment{Filename: "note.txt", Data: []byte("third")},
	)
	img := m.Build(ndb.FormatANSI, ndb.CryptNone)
	src := filepath.Join(t.TempDir(), "dup.pst")
	require.NoError(t, os.WriteFile(src, img.Data, 0o600))

	dest := t.TempDir()
	stdout, stderr, err := runCmd(t, "extract", src, dest)
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "saved 3 attachments")

	dir := filepath.Join(dest, "Inbox", fmt.Sprintf("%X", uint32(msg.NID)))
	var got []string
	for _, name := range []string{"note.txt", "note-2.txt", "note-3.txt"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		got = append(got, string(b))
	}
	assert.ElementsMatch(t, []string{"hello", "second", "third"}, got)
}

func TestUniqueName(t *testing.T) {
	used := map[string]bool{}
	for _, tc := range []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"report.pdf", "report-2.pdf"},
		{"report-2.pdf", "report-2-2.pdf"},
		{"report.pdf", "report-3.pdf"},
		{"README", "README"},
		{"README", "README-2"},
		{".hidden", ".hidden"},
		{".hidden", ".hidden-2"},
	} {
		assert.Equal(t, tc.want, uniqueName(used, tc.in))
	}
}

func TestEnvDefaults(t *testing.T) {
	path, m := fixture(t)
	nid := fmt.Sprintf("0x%X", uint32(m.Root.Folders[0].Messages[0].NID))

	t.Setenv("PSTGO_FORMAT", "csv")
	stdout, _, err := runCmd(t, "props", path, nid)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix([]byte(stdout), []byte("tag,type,name,value")))

	t.Setenv("PSTGO_WORKERS", "1")
	_, cfg := newFlagSet("x", io.Discard)
	assert.Equal(t, int64(1), cfg.workers)
	assert.Equal(t, "warn", cfg.logLevel)
}
