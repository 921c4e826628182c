// Package graphset loads graphs from local files and remote dataset
// catalogs into a uniform bundle representation.
//
// Local files are parsed directly: LoadEdgeList handles delimiter-separated
// edge lists and LoadGraphML handles GraphML documents. Remote datasets are
// fetched by name from the NetSet and Konect catalogs and cached on disk,
// so a dataset is downloaded at most once per machine.
//
// Every loader returns a graph.Bundle: either a *graph.Unipartite holding
// an adjacency matrix or a *graph.Bipartite holding a biadjacency matrix,
// with node names in first-occurrence order.
package graphset

import (
	"context"

	"github.com/verger/graphset/datasets"
	"github.com/verger/graphset/graph"
	"github.com/verger/graphset/parse"
)

// Aliases so simple callers need only this package.
type (
	Bundle     = graph.Bundle
	Unipartite = graph.Unipartite
	Bipartite  = graph.Bipartite
)

// LoadEdgeList parses a delimiter-separated edge list file. The delimiter
// is sniffed per file unless fixed with parse.WithDelimiter.
func LoadEdgeList(path string, opts ...parse.Option) (graph.Bundle, error) {
	return parse.EdgeListFile(path, opts...)
}

// LoadGraphML parses a GraphML file.
func LoadGraphML(path string, opts ...parse.Option) (graph.Bundle, error) {
	return parse.GraphMLFile(path, opts...)
}

// LoadNetSet loads a named dataset from the NetSet catalog, downloading it
// into the local cache on first use.
//
// Each call opens and closes a fresh datasets.Loader; construct one
// explicitly to load many datasets or to override endpoints.
func LoadNetSet(ctx context.Context, name string, opts ...datasets.Option) (graph.Bundle, error) {
	l, err := datasets.NewLoader(opts...)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.NetSet(ctx, name)
}

// LoadKonect loads a named dataset from the Konect collection, downloading
// it into the local cache on first use.
//
// Each call opens and closes a fresh datasets.Loader; construct one
// explicitly to load many datasets or to override endpoints.
func LoadKonect(ctx context.Context, name string, opts ...datasets.Option) (graph.Bundle, error) {
	l, err := datasets.NewLoader(opts...)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.Konect(ctx, name)
}
