// Package archive unpacks downloaded dataset archives. Catalogs serve
// .tar.gz, .tar.bz2 and .zip files, but the format is sniffed from the
// file's first bytes rather than trusted from its URL.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrUnsupported reports a file that matches none of the known formats.
var ErrUnsupported = errors.New("unsupported archive format")

// Format identifies an archive encoding.
type Format int

const (
	FormatUnknown Format = iota
	// FormatGzip is a gzip stream; Extract assumes it wraps a tar.
	FormatGzip
	// FormatBzip2 is a bzip2 stream; Extract assumes it wraps a tar.
	FormatBzip2
	FormatZip
	FormatTar
)

// String returns the conventional extension for the format.
func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "tar.gz"
	case FormatBzip2:
		return "tar.bz2"
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	default:
		return "unknown"
	}
}

// Entry records one extracted file, path relative to the destination in
// slash form.
type Entry struct {
	Path  string
	Bytes int64
}

// Detect sniffs the archive format of the file at path.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	// Tar puts its magic at offset 257; everything else fits in 4 bytes.
	buf := make([]byte, 265)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("reading archive header: %w", err)
	}
	return detectMagic(buf[:n]), nil
}

func detectMagic(buf []byte) Format {
	switch {
	case len(buf) >= 2 && buf[0] == 0x1f && buf[1] == 0x8b:
		return FormatGzip
	case len(buf) >= 3 && buf[0] == 'B' && buf[1] == 'Z' && buf[2] == 'h':
		return FormatBzip2
	case len(buf) >= 4 && buf[0] == 'P' && buf[1] == 'K' &&
		(buf[2] == 0x03 || buf[2] == 0x05) && (buf[3] == 0x04 || buf[3] == 0x06):
		return FormatZip
	case len(buf) >= 262 && string(buf[257:262]) == "ustar":
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Extract unpacks the archive at src into dst, which must already exist.
// Directory structure is preserved. Only regular files and directories are
// accepted; symlinks and device entries abort the extraction.
func Extract(src, dst string) ([]Entry, error) {
	format, err := Detect(src)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading gzip stream: %w", err)
		}
		defer zr.Close()
		return extractTar(tar.NewReader(zr), dst)
	case FormatBzip2:
		return extractTar(tar.NewReader(bzip2.NewReader(f)), dst)
	case FormatTar:
		return extractTar(tar.NewReader(f), dst)
	case FormatZip:
		return extractZip(src, dst)
	default:
		return nil, ErrUnsupported
	}
}

func extractTar(tr *tar.Reader, dst string) ([]Entry, error) {
	var entries []Entry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			target, err := securePath(dst, hdr.Name)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("creating directory: %w", err)
			}
		case tar.TypeReg:
			entry, err := writeEntry(dst, hdr.Name, tr)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		default:
			return nil, fmt.Errorf("refusing tar entry %q: unsupported type %q", hdr.Name, hdr.Typeflag)
		}
	}
}

func extractZip(src, dst string) ([]Entry, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	defer zr.Close()

	var entries []Entry
	for _, zf := range zr.File {
		mode := zf.Mode()
		switch {
		case mode.IsDir():
			target, err := securePath(dst, zf.Name)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("creating directory: %w", err)
			}
		case mode.IsRegular():
			rc, err := zf.Open()
			if err != nil {
				return nil, fmt.Errorf("opening zip entry %q: %w", zf.Name, err)
			}
			entry, err := writeEntry(dst, zf.Name, rc)
			rc.Close()
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		default:
			return nil, fmt.Errorf("refusing zip entry %q: unsupported mode %v", zf.Name, mode)
		}
	}
	return entries, nil
}

// writeEntry copies one archive member to its place under dst.
func writeEntry(dst, name string, r io.Reader) (Entry, error) {
	target, err := securePath(dst, name)
	if err != nil {
		return Entry{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Entry{}, fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("creating file: %w", err)
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Entry{}, fmt.Errorf("writing %s: %w", target, err)
	}

	rel, err := filepath.Rel(dst, target)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Path: filepath.ToSlash(rel), Bytes: written}, nil
}

// securePath joins an archive member name onto dst, rejecting absolute
// paths and anything that escapes the destination.
func securePath(dst, name string) (string, error) {
	name = filepath.FromSlash(name)
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("refusing absolute archive path %q", name)
	}
	target := filepath.Join(dst, name)
	if target != filepath.Clean(dst) && !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive path %q escapes destination", name)
	}
	return target, nil
}
