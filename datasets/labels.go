package datasets

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/verger/graphset/graph"
	"github.com/verger/graphset/parse"
)

// readLabelFile reads a node-to-category file: one "name<TAB>category" pair
// per line, '#'/'%' comments and blank lines skipped. Returns nil when the
// file is absent.
func readLabelFile(dir, base string) (map[string]string, error) {
	path, err := findFile(dir, base)
	if err != nil || path == "" {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", base, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	labels := make(map[string]string)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '%' {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, &parse.FormatError{
				Line:   lineNum,
				Reason: fmt.Sprintf("%s: expected name and category separated by a tab", base),
			}
		}
		labels[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", base, err)
	}
	return labels, nil
}

// labelsByIndex projects name-keyed categories onto node indices. Names
// without a category are simply absent from the result.
func labelsByIndex(names []string, byName map[string]string) map[int]string {
	if len(byName) == 0 {
		return nil
	}
	labels := make(map[int]string)
	for i, n := range names {
		if cat, ok := byName[n]; ok {
			labels[i] = cat
		}
	}
	if len(labels) == 0 {
		return nil
	}
	return labels
}

// setMetadata stamps provenance onto either bundle shape.
func setMetadata(b graph.Bundle, meta graph.Metadata) {
	switch v := b.(type) {
	case *graph.Unipartite:
		v.Metadata = meta
	case *graph.Bipartite:
		v.Metadata = meta
	}
}
