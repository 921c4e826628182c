package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// tarball assembles an in-memory tar from name/content pairs.
func tarball(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing tar content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	return &buf
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing temp archive: %v", err)
	}
	return path
}

func TestExtract_TarGz(t *testing.T) {
	inner := tarball(t, map[string]string{
		"dataset/edges.tsv": "a\tb\n",
		"dataset/meta.yaml": "name: test\n",
	})
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(inner.Bytes()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	dst := t.TempDir()
	entries, err := Extract(writeTemp(t, buf.Bytes()), dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dst, "dataset", "edges.tsv"))
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(data) != "a\tb\n" {
		t.Errorf("unexpected content %q", data)
	}
	for _, e := range entries {
		if e.Path != "dataset/edges.tsv" && e.Path != "dataset/meta.yaml" {
			t.Errorf("unexpected entry path %q", e.Path)
		}
		if e.Bytes == 0 {
			t.Errorf("entry %q reports zero bytes", e.Path)
		}
	}
}

func TestExtract_PlainTar(t *testing.T) {
	buf := tarball(t, map[string]string{"out.test": "1 2\n"})

	dst := t.TempDir()
	entries, err := Extract(writeTemp(t, buf.Bytes()), dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "out.test" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestExtract_Zip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("graph.graphml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := w.Write([]byte("<graphml/>")); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	dst := t.TempDir()
	entries, err := Extract(writeTemp(t, buf.Bytes()), dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "graph.graphml" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestExtract_EmptyBzip2(t *testing.T) {
	// The canonical empty bzip2 stream: magic, stream end, zero CRC.
	empty := []byte{
		0x42, 0x5a, 0x68, 0x39, 0x17, 0x72, 0x45, 0x38,
		0x50, 0x90, 0x00, 0x00, 0x00, 0x00,
	}
	entries, err := Extract(writeTemp(t, empty), t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	buf := tarball(t, map[string]string{"../evil.txt": "boom"})

	_, err := Extract(writeTemp(t, buf.Bytes()), t.TempDir())
	if err == nil {
		t.Fatal("expected error for escaping path")
	}
}

func TestExtract_RejectsSymlink(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{Name: "link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("writing tar header: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}

	_, err := Extract(writeTemp(t, buf.Bytes()), t.TempDir())
	if err == nil {
		t.Fatal("expected error for symlink entry")
	}
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract(writeTemp(t, []byte("just text, not an archive")), t.TempDir())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDetectMagic(t *testing.T) {
	tarHeader := make([]byte, 262)
	copy(tarHeader[257:], "ustar")

	tests := []struct {
		name string
		buf  []byte
		want Format
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08}, FormatGzip},
		{"bzip2", []byte("BZh91AY&SY"), FormatBzip2},
		{"zip", []byte{'P', 'K', 0x03, 0x04}, FormatZip},
		{"empty zip", []byte{'P', 'K', 0x05, 0x06}, FormatZip},
		{"tar", tarHeader, FormatTar},
		{"text", []byte("hello world"), FormatUnknown},
		{"short", []byte{0x1f}, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMagic(tt.buf); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
