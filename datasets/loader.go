// Package datasets loads named graphs from the NetSet and Konect catalogs
// through a local on-disk cache. A dataset is fetched at most once: later
// loads parse the cached files without touching the network.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/verger/graphset/internal/archive"
	"github.com/verger/graphset/internal/fetch"
)

// Catalog source identifiers, also the directory names under the data home.
const (
	SourceNetSet = "netset"
	SourceKonect = "konect"
)

// Default catalog endpoints.
const (
	DefaultNetSetURL = "https://netset.telecom-paris.fr"
	DefaultKonectURL = "http://konect.cc"
)

const manifestFile = "manifest.db"

// DataHome resolves the cache root: $GRAPHSET_DATA, then
// $XDG_CACHE_HOME/graphset, then ~/.cache/graphset.
func DataHome() (string, error) {
	if dir := os.Getenv("GRAPHSET_DATA"); dir != "" {
		return dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "graphset"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving data home: %w", err)
	}
	return filepath.Join(home, ".cache", "graphset"), nil
}

// Loader fetches, caches and parses remote datasets.
type Loader struct {
	home      string
	client    *fetch.Client
	log       *zap.Logger
	netsetURL string
	konectURL string
	manifest  *Manifest
	group     singleflight.Group
}

// Option configures a Loader.
type Option func(*Loader)

// WithDataHome overrides the resolved cache root.
func WithDataHome(dir string) Option {
	return func(l *Loader) {
		l.home = dir
	}
}

// WithClient sets a custom download client.
func WithClient(c *fetch.Client) Option {
	return func(l *Loader) {
		l.client = c
	}
}

// WithLogger sets the loader logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// WithNetSetURL overrides the NetSet endpoint.
func WithNetSetURL(url string) Option {
	return func(l *Loader) {
		l.netsetURL = strings.TrimRight(url, "/")
	}
}

// WithKonectURL overrides the Konect endpoint.
func WithKonectURL(url string) Option {
	return func(l *Loader) {
		l.konectURL = strings.TrimRight(url, "/")
	}
}

// NewLoader creates a Loader, resolving the data home and opening the
// cache manifest under it.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{
		log:       zap.NewNop(),
		netsetURL: DefaultNetSetURL,
		konectURL: DefaultKonectURL,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.home == "" {
		home, err := DataHome()
		if err != nil {
			return nil, err
		}
		l.home = home
	}
	if err := os.MkdirAll(l.home, 0o755); err != nil {
		return nil, fmt.Errorf("creating data home: %w", err)
	}

	if l.client == nil {
		l.client = fetch.NewClient(fetch.WithLogger(l.log))
	}

	manifest, err := OpenManifest(filepath.Join(l.home, manifestFile))
	if err != nil {
		return nil, err
	}
	l.manifest = manifest
	return l, nil
}

// Close releases the manifest database.
func (l *Loader) Close() error {
	return l.manifest.Close()
}

// Home returns the resolved cache root.
func (l *Loader) Home() string {
	return l.home
}

// List returns the manifest entries of all cached datasets.
func (l *Loader) List() ([]Record, error) {
	return l.manifest.List()
}

// Info returns the manifest entry and file rows of one cached dataset.
// The record is nil when the dataset is not cached.
func (l *Loader) Info(source, name string) (*Record, []FileRecord, error) {
	rec, err := l.manifest.Get(source, name)
	if err != nil || rec == nil {
		return rec, nil, err
	}
	files, err := l.manifest.Files(source, name)
	if err != nil {
		return nil, nil, err
	}
	return rec, files, nil
}

// Remove deletes a cached dataset's files and manifest entry.
func (l *Loader) Remove(source, name string) error {
	unlock, err := l.lockDataset(source, name)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.RemoveAll(l.datasetDir(source, name)); err != nil {
		return fmt.Errorf("removing dataset files: %w", err)
	}
	return l.manifest.Remove(source, name)
}

// Drift is one verification finding: a cached file that no longer matches
// its manifest digest, or that is missing entirely.
type Drift struct {
	Path string
	Want string // manifest digest
	Got  string // current digest, empty when the file is missing
}

// Verify rehashes the extracted files of a cached dataset against the
// manifest and returns any drift.
func (l *Loader) Verify(source, name string) ([]Drift, error) {
	rec, err := l.manifest.Get(source, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("dataset %s/%s is not cached", source, name)
	}
	files, err := l.manifest.Files(source, name)
	if err != nil {
		return nil, err
	}

	dir := l.datasetDir(source, name)
	var drift []Drift
	for _, f := range files {
		got, err := archive.Digest(filepath.Join(dir, filepath.FromSlash(f.Path)))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				drift = append(drift, Drift{Path: f.Path, Want: f.Digest})
				continue
			}
			return nil, err
		}
		if got != f.Digest {
			drift = append(drift, Drift{Path: f.Path, Want: f.Digest, Got: got})
		}
	}
	return drift, nil
}

func (l *Loader) datasetDir(source, name string) string {
	return filepath.Join(l.home, source, name)
}

// cached reports whether a dataset has both a manifest entry and files on
// disk. Either alone means a partial state and triggers a fresh install.
func (l *Loader) cached(source, name string) (*Record, bool) {
	rec, err := l.manifest.Get(source, name)
	if err != nil || rec == nil {
		return nil, false
	}
	info, err := os.Stat(l.datasetDir(source, name))
	if err != nil || !info.IsDir() {
		return nil, false
	}
	return rec, true
}

// lockDataset takes the per-dataset advisory file lock, guarding installs
// against concurrent processes.
func (l *Loader) lockDataset(source, name string) (func(), error) {
	parent := filepath.Join(l.home, source)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	fl := flock.New(filepath.Join(parent, name+".lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking dataset %s/%s: %w", source, name, err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			l.log.Warn("releasing dataset lock",
				zap.String("source", source),
				zap.String("name", name),
				zap.Error(err))
		}
	}, nil
}

type installResult struct {
	entries       []archive.Entry
	archiveBytes  int64
	archiveDigest string
}

// install downloads the archive at url and unpacks it into the dataset
// directory, staging under the data home so the final step is a rename.
// notFound, when non-nil, is returned for a 404; every other fetch failure
// maps to NetworkError. Nothing is installed on failure.
func (l *Loader) install(ctx context.Context, source, name, url, wantDigest string, notFound error) (*installResult, error) {
	staging, err := os.MkdirTemp(l.home, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	archivePath := filepath.Join(staging, "archive")
	archiveBytes, digest, err := l.client.Download(ctx, url, archivePath)
	if err != nil {
		if notFound != nil && fetch.IsNotFound(err) {
			return nil, notFound
		}
		return nil, &NetworkError{URL: url, Err: err}
	}
	if wantDigest != "" && digest != wantDigest {
		return nil, fmt.Errorf("archive digest mismatch for %s/%s: catalog says %s, downloaded %s",
			source, name, wantDigest, digest)
	}

	dataDir := filepath.Join(staging, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	entries, err := archive.Extract(archivePath, dataDir)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", url, err)
	}

	dir := l.datasetDir(source, name)
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clearing stale dataset dir: %w", err)
	}
	if err := os.Rename(dataDir, dir); err != nil {
		return nil, fmt.Errorf("installing dataset: %w", err)
	}

	l.log.Info("installed dataset",
		zap.String("source", source),
		zap.String("name", name),
		zap.Int64("archive_bytes", archiveBytes),
		zap.Int("files", len(entries)))
	return &installResult{entries: entries, archiveBytes: archiveBytes, archiveDigest: digest}, nil
}

// fileRecords digests the freshly extracted files for the manifest.
func (l *Loader) fileRecords(source, name string, entries []archive.Entry) ([]FileRecord, error) {
	dir := l.datasetDir(source, name)
	files := make([]FileRecord, 0, len(entries))
	for _, e := range entries {
		digest, err := archive.Digest(filepath.Join(dir, filepath.FromSlash(e.Path)))
		if err != nil {
			return nil, fmt.Errorf("digesting %s: %w", e.Path, err)
		}
		files = append(files, FileRecord{Path: e.Path, Bytes: e.Bytes, Digest: digest})
	}
	return files, nil
}

// findFile locates a file by exact base name anywhere under dir. Archives
// may or may not wrap their contents in a top-level directory.
func findFile(dir, base string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !d.IsDir() && d.Name() == base {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", dir, err)
	}
	return found, nil
}

// findPrefix locates files whose base name starts with prefix, sorted by
// base name.
func findPrefix(dir, prefix string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), prefix) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", dir, err)
	}
	sort.Slice(found, func(i, j int) bool {
		return filepath.Base(found[i]) < filepath.Base(found[j])
	})
	return found, nil
}
