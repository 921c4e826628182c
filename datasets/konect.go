package datasets

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verger/graphset/graph"
	"github.com/verger/graphset/parse"
)

// konectNameRE matches well-formed Konect dataset codes. Anything else is
// rejected before the URL is even built.
var konectNameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Konect loads a named dataset from the Konect collection, fetching and
// caching it on first use. Konect publishes no index, so resolution is by
// URL: malformed names return ErrUnknownDataset with no network I/O, and a
// 404 on the archive maps to ErrUnknownDataset as well.
func (l *Loader) Konect(ctx context.Context, name string) (graph.Bundle, error) {
	if !konectNameRE.MatchString(name) {
		return nil, &UnknownDatasetError{Source: SourceKonect, Name: name}
	}

	v, err, _ := l.group.Do(SourceKonect+"/"+name, func() (interface{}, error) {
		return l.loadKonect(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(graph.Bundle), nil
}

func (l *Loader) loadKonect(ctx context.Context, name string) (graph.Bundle, error) {
	if _, ok := l.cached(SourceKonect, name); ok {
		l.log.Debug("cache hit",
			zap.String("source", SourceKonect),
			zap.String("name", name))
		return l.parseKonect(name)
	}

	unlock, err := l.lockDataset(SourceKonect, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, ok := l.cached(SourceKonect, name); ok {
		return l.parseKonect(name)
	}

	url := l.konectDownloadURL(name)
	notFound := &UnknownDatasetError{Source: SourceKonect, Name: name}
	res, err := l.install(ctx, SourceKonect, name, url, "", notFound)
	if err != nil {
		return nil, err
	}

	b, err := l.parseKonect(name)
	if err != nil {
		return nil, err
	}

	meta := b.Meta()
	rec := Record{
		Source:        SourceKonect,
		Name:          name,
		URL:           url,
		FetchedAt:     time.Now().UTC(),
		ArchiveBytes:  res.archiveBytes,
		ArchiveDigest: res.archiveDigest,
		Format:        "edgelist",
		Directed:      bundleDirected(b),
		Bipartite:     b.Kind() == graph.KindBipartite,
		Title:         meta.Title,
		Description:   meta.Description,
	}
	files, err := l.fileRecords(SourceKonect, name, res.entries)
	if err != nil {
		return nil, err
	}
	if err := l.manifest.Put(rec, files); err != nil {
		return nil, err
	}
	return b, nil
}

func (l *Loader) konectDownloadURL(name string) string {
	return fmt.Sprintf("%s/files/download.tsv.%s.tar.bz2", l.konectURL, name)
}

// parseKonect builds the bundle from the cached files. The graph shape is
// read from the out file's own header, so no manifest entry is needed.
func (l *Loader) parseKonect(name string) (graph.Bundle, error) {
	dir := l.datasetDir(SourceKonect, name)

	outs, err := findPrefix(dir, "out.")
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, &parse.FormatError{Reason: fmt.Sprintf("dataset %s has no out.* edge file", name)}
	}
	outPath := outs[0]

	shape, err := konectShape(outPath)
	if err != nil {
		return nil, err
	}

	opts := []parse.Option{parse.WithExtraColumns()}
	switch shape {
	case "asym":
		opts = append(opts, parse.WithDirected())
	case "bip":
		opts = append(opts, parse.WithBipartite())
	}

	b, err := parse.EdgeListFile(outPath, opts...)
	if err != nil {
		return nil, err
	}

	if err := l.applyKonectNames(dir, b); err != nil {
		return nil, err
	}

	meta := konectMetadata(dir, name)
	if meta.URL == "" {
		meta.URL = l.konectDownloadURL(name)
	}
	setMetadata(b, meta)
	return b, nil
}

// konectShape reads the graph shape token (sym, asym or bip) from the
// first '%' header line of an out file.
func konectShape(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	base := filepath.Base(path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "%") {
			return "", &parse.FormatError{Reason: fmt.Sprintf("%s: missing %% format header", base)}
		}
		fields := strings.Fields(strings.TrimPrefix(line, "%"))
		if len(fields) == 0 {
			return "", &parse.FormatError{Reason: fmt.Sprintf("%s: empty format header", base)}
		}
		switch fields[0] {
		case "sym", "asym", "bip":
			return fields[0], nil
		default:
			return "", &parse.FormatError{Reason: fmt.Sprintf("%s: unknown format token %q", base, fields[0])}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return "", &parse.FormatError{Reason: fmt.Sprintf("%s: missing %% format header", base)}
}

// applyKonectNames renames numeric node ids using the ent.* entity files:
// line k of an entity file (1-based) names the entity with id k. The first
// file covers unipartite nodes or bipartite rows, a second covers bipartite
// columns. Ids without a line keep their numeric name.
func (l *Loader) applyKonectNames(dir string, b graph.Bundle) error {
	ents, err := findPrefix(dir, "ent.")
	if err != nil || len(ents) == 0 {
		return err
	}

	first, err := readEntityNames(ents[0])
	if err != nil {
		return err
	}
	switch v := b.(type) {
	case *graph.Unipartite:
		renameNumericIDs(v.Names, first)
	case *graph.Bipartite:
		renameNumericIDs(v.NamesRow, first)
		if len(ents) > 1 {
			second, err := readEntityNames(ents[1])
			if err != nil {
				return err
			}
			renameNumericIDs(v.NamesCol, second)
		}
	}
	return nil
}

// readEntityNames returns the data lines of an ent file, skipping the
// leading '%' header block only. Line position is meaningful after that.
func readEntityNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var names []string
	started := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !started && strings.HasPrefix(line, "%") {
			continue
		}
		started = true
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return names, nil
}

// renameNumericIDs rewrites numeric names in place from the entity list.
func renameNumericIDs(names, entities []string) {
	for i, n := range names {
		id, err := strconv.Atoi(n)
		if err != nil || id < 1 || id > len(entities) {
			continue
		}
		if entities[id-1] != "" {
			names[i] = entities[id-1]
		}
	}
}

// konectMetadata reads the meta.* key/value file into bundle provenance.
// A missing or partial file just leaves fields empty.
func konectMetadata(dir, name string) graph.Metadata {
	meta := graph.Metadata{Name: name, Source: SourceKonect}

	paths, err := findPrefix(dir, "meta.")
	if err != nil || len(paths) == 0 {
		return meta
	}
	f, err := os.Open(paths[0])
	if err != nil {
		return meta
	}
	defer f.Close()

	kv := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		kv[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	meta.Title = kv["name"]
	meta.Description = kv["long-description"]
	if meta.Description == "" {
		meta.Description = kv["description"]
	}
	meta.URL = kv["url"]
	return meta
}

// bundleDirected reports the directed flag of a unipartite bundle.
func bundleDirected(b graph.Bundle) bool {
	if u, ok := b.(*graph.Unipartite); ok {
		return u.Directed
	}
	return false
}
