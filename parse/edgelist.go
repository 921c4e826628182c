// Package parse reads graph files into bundles: delimited edge lists and
// the common subset of GraphML.
package parse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verger/graphset/graph"
)

// maxLineBytes caps a single input line at 1MB.
const maxLineBytes = 1024 * 1024

// EdgeListFile parses the edge list at path. See EdgeList.
func EdgeListFile(path string, opts ...Option) (graph.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening edge list: %w", err)
	}
	defer f.Close()

	b, err := EdgeList(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	setName(b, filepath.Base(path))
	return b, nil
}

// EdgeList parses a delimited edge list: one edge per line, two node
// identifiers and an optional numeric weight. Lines starting with '#' or '%'
// and blank lines are skipped. Node ids are assigned in first-occurrence
// order. Without WithDirected the adjacency is symmetrized; with
// WithBipartite column one names the row set and column two the column set.
func EdgeList(r io.Reader, opts ...Option) (graph.Bundle, error) {
	o := gather(opts)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLineBytes), maxLineBytes)

	var (
		entries  []graph.Triplet
		rowIndex = graph.NewIndex()
		colIndex = rowIndex // unipartite: both columns share one index
		delim    = o.delimiter
		lineNum  = 0
		seen     = 0
	)
	if o.bipartite {
		colIndex = graph.NewIndex()
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '%' {
			continue
		}
		if delim == 0 {
			delim = sniffDelimiter(line)
		}

		fields := splitFields(line, delim)
		switch {
		case len(fields) < 2:
			return nil, formatErrorf(lineNum, "expected 2 or 3 columns, got %d", len(fields))
		case len(fields) > 3 && !o.extraColumns:
			return nil, formatErrorf(lineNum, "expected 2 or 3 columns, got %d", len(fields))
		}

		src, dst := fields[0], fields[1]
		if src == "" || dst == "" {
			return nil, formatErrorf(lineNum, "empty node identifier")
		}

		weight := 1.0
		if len(fields) >= 3 {
			w, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, formatErrorf(lineNum, "bad weight %q", fields[2])
			}
			weight = w
		}

		entries = append(entries, graph.Triplet{
			Row:    rowIndex.Add(src),
			Col:    colIndex.Add(dst),
			Weight: weight,
		})
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading edge list: %w", err)
	}
	if seen == 0 {
		return nil, formatErrorf(0, "no edge lines in input")
	}

	if o.bipartite {
		bi, err := graph.NewMatrix(rowIndex.Len(), colIndex.Len(), entries)
		if err != nil {
			return nil, err
		}
		return &graph.Bipartite{
			Biadjacency: bi,
			NamesRow:    rowIndex.Names(),
			NamesCol:    colIndex.Names(),
		}, nil
	}

	if !o.directed {
		entries = graph.Symmetrize(entries)
	}
	n := rowIndex.Len()
	adj, err := graph.NewMatrix(n, n, entries)
	if err != nil {
		return nil, err
	}
	return &graph.Unipartite{
		Adjacency: adj,
		Names:     rowIndex.Names(),
		Directed:  o.directed,
	}, nil
}

// sniffDelimiter picks the column delimiter from the first data line:
// tab, comma and semicolon in that order, falling back to whitespace.
func sniffDelimiter(line string) rune {
	for _, d := range []rune{'\t', ',', ';'} {
		if strings.ContainsRune(line, d) {
			return d
		}
	}
	return ' '
}

// splitFields splits a data line on the delimiter. A space delimiter means
// any run of whitespace.
func splitFields(line string, delim rune) []string {
	if delim == ' ' {
		return strings.Fields(line)
	}
	fields := strings.Split(line, string(delim))
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// setName fills in the bundle's metadata name.
func setName(b graph.Bundle, name string) {
	switch v := b.(type) {
	case *graph.Unipartite:
		v.Metadata.Name = name
	case *graph.Bipartite:
		v.Metadata.Name = name
	}
}
