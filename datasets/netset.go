package datasets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/verger/graphset/graph"
	"github.com/verger/graphset/parse"
)

// netsetEntry is one row of the catalog index at <endpoint>/datasets.json,
// keyed by dataset name.
type netsetEntry struct {
	File        string `json:"file"`
	Format      string `json:"format"` // "edgelist" (default) or "graphml"
	Directed    bool   `json:"directed"`
	Bipartite   bool   `json:"bipartite"`
	Digest      string `json:"digest"` // hex BLAKE2b-256 of the archive, optional
	Title       string `json:"title"`
	Description string `json:"description"`
}

// netsetMeta is the optional meta.yaml inside a NetSet archive. Its values
// win over the index entry.
type netsetMeta struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	Directed    *bool  `yaml:"directed"`
	Bipartite   *bool  `yaml:"bipartite"`
}

// NetSet loads a named dataset from the NetSet catalog, fetching and
// caching it on first use. A name missing from the catalog index returns
// ErrUnknownDataset without an archive fetch.
func (l *Loader) NetSet(ctx context.Context, name string) (graph.Bundle, error) {
	v, err, _ := l.group.Do(SourceNetSet+"/"+name, func() (interface{}, error) {
		return l.loadNetSet(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(graph.Bundle), nil
}

func (l *Loader) loadNetSet(ctx context.Context, name string) (graph.Bundle, error) {
	if rec, ok := l.cached(SourceNetSet, name); ok {
		l.log.Debug("cache hit",
			zap.String("source", SourceNetSet),
			zap.String("name", name))
		return l.parseNetSet(name, rec)
	}

	unlock, err := l.lockDataset(SourceNetSet, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another process may have finished installing while we waited.
	if rec, ok := l.cached(SourceNetSet, name); ok {
		return l.parseNetSet(name, rec)
	}

	indexURL := l.netsetURL + "/datasets.json"
	data, err := l.client.Get(ctx, indexURL)
	if err != nil {
		return nil, &NetworkError{URL: indexURL, Err: err}
	}
	var index map[string]netsetEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parsing catalog index: %w", err)
	}

	entry, ok := index[name]
	if !ok {
		return nil, &UnknownDatasetError{Source: SourceNetSet, Name: name}
	}

	archiveURL := l.netsetURL + "/" + strings.TrimLeft(entry.File, "/")
	res, err := l.install(ctx, SourceNetSet, name, archiveURL, entry.Digest, nil)
	if err != nil {
		return nil, err
	}

	rec := l.netsetRecord(name, archiveURL, entry, res)
	files, err := l.fileRecords(SourceNetSet, name, res.entries)
	if err != nil {
		return nil, err
	}
	if err := l.manifest.Put(*rec, files); err != nil {
		return nil, err
	}

	return l.parseNetSet(name, rec)
}

// netsetRecord builds the manifest entry for a fresh install, merging the
// index entry with the archive's meta.yaml.
func (l *Loader) netsetRecord(name, url string, entry netsetEntry, res *installResult) *Record {
	rec := &Record{
		Source:        SourceNetSet,
		Name:          name,
		URL:           url,
		FetchedAt:     time.Now().UTC(),
		ArchiveBytes:  res.archiveBytes,
		ArchiveDigest: res.archiveDigest,
		Format:        entry.Format,
		Directed:      entry.Directed,
		Bipartite:     entry.Bipartite,
		Title:         entry.Title,
		Description:   entry.Description,
	}
	if rec.Format == "" {
		rec.Format = "edgelist"
	}

	meta, err := l.readNetSetMeta(name)
	if err != nil {
		l.log.Warn("ignoring unreadable meta.yaml",
			zap.String("name", name),
			zap.Error(err))
		return rec
	}
	if meta != nil {
		if meta.Directed != nil {
			rec.Directed = *meta.Directed
		}
		if meta.Bipartite != nil {
			rec.Bipartite = *meta.Bipartite
		}
		if meta.Title != "" {
			rec.Title = meta.Title
		}
		if meta.Description != "" {
			rec.Description = meta.Description
		}
	}
	return rec
}

func (l *Loader) readNetSetMeta(name string) (*netsetMeta, error) {
	path, err := findFile(l.datasetDir(SourceNetSet, name), "meta.yaml")
	if err != nil || path == "" {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading meta.yaml: %w", err)
	}
	var meta netsetMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing meta.yaml: %w", err)
	}
	return &meta, nil
}

// parseNetSet builds the bundle from the cached files, shaped by the
// manifest entry. No network access.
func (l *Loader) parseNetSet(name string, rec *Record) (graph.Bundle, error) {
	dir := l.datasetDir(SourceNetSet, name)

	var opts []parse.Option
	if rec.Directed {
		opts = append(opts, parse.WithDirected())
	}
	if rec.Bipartite {
		opts = append(opts, parse.WithBipartite())
	}

	var b graph.Bundle
	switch rec.Format {
	case "edgelist":
		path, err := findFile(dir, "edges.tsv")
		if err != nil {
			return nil, err
		}
		if path == "" {
			return nil, &parse.FormatError{Reason: fmt.Sprintf("dataset %s has no edges.tsv", name)}
		}
		if b, err = parse.EdgeListFile(path, opts...); err != nil {
			return nil, err
		}
	case "graphml":
		path, err := findFile(dir, "graph.graphml")
		if err != nil {
			return nil, err
		}
		if path == "" {
			return nil, &parse.FormatError{Reason: fmt.Sprintf("dataset %s has no graph.graphml", name)}
		}
		if b, err = parse.GraphMLFile(path, opts...); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown dataset format %q", rec.Format)
	}

	if err := l.attachNetSetLabels(dir, b); err != nil {
		return nil, err
	}

	setMetadata(b, graph.Metadata{
		Name:        name,
		Source:      SourceNetSet,
		Title:       rec.Title,
		Description: rec.Description,
		URL:         rec.URL,
	})
	return b, nil
}

// attachNetSetLabels applies the archive's optional category files.
func (l *Loader) attachNetSetLabels(dir string, b graph.Bundle) error {
	switch v := b.(type) {
	case *graph.Unipartite:
		byName, err := readLabelFile(dir, "labels.tsv")
		if err != nil {
			return err
		}
		if labels := labelsByIndex(v.Names, byName); labels != nil {
			v.Labels = labels
		}
	case *graph.Bipartite:
		rowByName, err := readLabelFile(dir, "labels_row.tsv")
		if err != nil {
			return err
		}
		colByName, err := readLabelFile(dir, "labels_col.tsv")
		if err != nil {
			return err
		}
		if labels := labelsByIndex(v.NamesRow, rowByName); labels != nil {
			v.LabelsRow = labels
		}
		if labels := labelsByIndex(v.NamesCol, colByName); labels != nil {
			v.LabelsCol = labels
		}
	}
	return nil
}
