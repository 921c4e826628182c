package parse

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verger/graphset/graph"
)

// graphmlDoc mirrors the subset of the GraphML schema the loader consumes.
type graphmlDoc struct {
	XMLName xml.Name       `xml:"graphml"`
	Keys    []graphmlKey   `xml:"key"`
	Graphs  []graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID      string `xml:"id,attr"`
	For     string `xml:"for,attr"`
	Name    string `xml:"attr.name,attr"`
	Type    string `xml:"attr.type,attr"`
	Default string `xml:"default"`
}

type graphmlGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source   string        `xml:"source,attr"`
	Target   string        `xml:"target,attr"`
	Directed *bool         `xml:"directed,attr"`
	Data     []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// GraphMLFile parses the GraphML document at path. See GraphML.
func GraphMLFile(path string, opts ...Option) (graph.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graphml: %w", err)
	}
	defer f.Close()

	b, err := GraphML(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	setName(b, filepath.Base(path))
	return b, nil
}

// GraphML parses a GraphML document: key declarations, the first graph
// element, its nodes, edges and data values. Edge direction follows the
// graph's edgedefault unless WithDirected forces it; a per-edge directed
// attribute overrides both. Node attributes are returned on the bundle, and
// the attribute named by WithLabelKey (default "label") also fills the
// bundle labels. Bipartite loading requires a node partition attribute
// (WithPartitionKey, default "part") with row/col, true/false or 0/1 values.
func GraphML(r io.Reader, opts ...Option) (graph.Bundle, error) {
	o := gather(opts)

	var doc graphmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("invalid XML: %v", err)}
	}
	if len(doc.Graphs) == 0 {
		return nil, &FormatError{Reason: "no graph element"}
	}
	g := doc.Graphs[0]
	if len(g.Nodes) == 0 {
		return nil, &FormatError{Reason: "graph has no nodes"}
	}

	// Resolve key ids to attribute names.
	nodeKeys := make(map[string]graphmlKey) // key id -> declaration
	var weightKey string
	for _, k := range doc.Keys {
		switch k.For {
		case "node", "all", "":
			nodeKeys[k.ID] = k
		}
		if (k.For == "edge" || k.For == "all") && k.Name == "weight" {
			weightKey = k.ID
		}
	}

	index := graph.NewIndex()
	for _, n := range g.Nodes {
		if n.ID == "" {
			return nil, &FormatError{Reason: "node without id attribute"}
		}
		if _, ok := index.ID(n.ID); ok {
			return nil, &FormatError{Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		index.Add(n.ID)
	}

	attrs := collectNodeAttributes(g.Nodes, index, nodeKeys)

	if o.bipartite {
		return buildBipartiteGraphML(g, index, attrs, weightKey, o)
	}
	return buildUnipartiteGraphML(g, index, attrs, weightKey, o)
}

// collectNodeAttributes gathers declared node attributes into per-name
// value slices indexed by node id, applying key defaults.
func collectNodeAttributes(nodes []graphmlNode, index *graph.Index, keys map[string]graphmlKey) map[string][]string {
	attrs := make(map[string][]string)
	for _, k := range keys {
		if k.Name == "" {
			continue
		}
		vals := make([]string, index.Len())
		if k.Default != "" {
			d := strings.TrimSpace(k.Default)
			for i := range vals {
				vals[i] = d
			}
		}
		attrs[k.Name] = vals
	}

	for _, n := range nodes {
		id, _ := index.ID(n.ID)
		for _, d := range n.Data {
			k, ok := keys[d.Key]
			if !ok || k.Name == "" {
				continue
			}
			attrs[k.Name][id] = strings.TrimSpace(d.Value)
		}
	}
	return attrs
}

// labelsFromAttribute lifts one attribute column into the index->category map.
func labelsFromAttribute(vals []string) map[int]string {
	labels := make(map[int]string)
	for i, v := range vals {
		if v != "" {
			labels[i] = v
		}
	}
	if len(labels) == 0 {
		return nil
	}
	return labels
}

func buildUnipartiteGraphML(g graphmlGraph, index *graph.Index, attrs map[string][]string, weightKey string, o options) (graph.Bundle, error) {
	defaultDirected := o.directed || g.EdgeDefault == "directed"

	var entries []graph.Triplet
	for _, e := range g.Edges {
		s, t, err := edgeEndpoints(e, index)
		if err != nil {
			return nil, err
		}
		w, err := edgeWeight(e, weightKey)
		if err != nil {
			return nil, err
		}

		directed := defaultDirected
		if e.Directed != nil {
			directed = *e.Directed
		}
		entries = append(entries, graph.Triplet{Row: s, Col: t, Weight: w})
		if !directed && s != t {
			entries = append(entries, graph.Triplet{Row: t, Col: s, Weight: w})
		}
	}

	adj, err := graph.NewMatrix(index.Len(), index.Len(), entries)
	if err != nil {
		return nil, err
	}

	u := &graph.Unipartite{
		Adjacency:  adj,
		Names:      index.Names(),
		Directed:   defaultDirected,
		Attributes: attrs,
	}
	if vals, ok := attrs[o.labelKey]; ok {
		u.Labels = labelsFromAttribute(vals)
	}
	return u, nil
}

func buildBipartiteGraphML(g graphmlGraph, index *graph.Index, attrs map[string][]string, weightKey string, o options) (graph.Bundle, error) {
	part, ok := attrs[o.partitionKey]
	if !ok {
		return nil, &FormatError{Reason: fmt.Sprintf("bipartite loading requires a %q node attribute", o.partitionKey)}
	}

	// Split nodes into the two sides, keeping document order within each.
	names := index.Names()
	side := make([]bool, len(names)) // true = column side
	rowIndex, colIndex := graph.NewIndex(), graph.NewIndex()
	for i, name := range names {
		isCol, err := partitionSide(part[i])
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("node %q: %v", name, err)}
		}
		side[i] = isCol
		if isCol {
			colIndex.Add(name)
		} else {
			rowIndex.Add(name)
		}
	}

	var entries []graph.Triplet
	for _, e := range g.Edges {
		s, t, err := edgeEndpoints(e, index)
		if err != nil {
			return nil, err
		}
		if side[s] == side[t] {
			return nil, &FormatError{Reason: fmt.Sprintf("edge %q-%q joins nodes on the same side", e.Source, e.Target)}
		}
		if side[s] {
			s, t = t, s // normalize to row -> col
		}
		r, _ := rowIndex.ID(names[s])
		c, _ := colIndex.ID(names[t])
		w, err := edgeWeight(e, weightKey)
		if err != nil {
			return nil, err
		}
		entries = append(entries, graph.Triplet{Row: r, Col: c, Weight: w})
	}

	bi, err := graph.NewMatrix(rowIndex.Len(), colIndex.Len(), entries)
	if err != nil {
		return nil, err
	}

	b := &graph.Bipartite{
		Biadjacency:   bi,
		NamesRow:      rowIndex.Names(),
		NamesCol:      colIndex.Names(),
		AttributesRow: splitAttributes(attrs, names, side, rowIndex, false),
		AttributesCol: splitAttributes(attrs, names, side, colIndex, true),
	}
	if vals, ok := b.AttributesRow[o.labelKey]; ok {
		b.LabelsRow = labelsFromAttribute(vals)
	}
	if vals, ok := b.AttributesCol[o.labelKey]; ok {
		b.LabelsCol = labelsFromAttribute(vals)
	}
	return b, nil
}

// splitAttributes projects full-graph attribute columns onto one side.
func splitAttributes(attrs map[string][]string, names []string, side []bool, idx *graph.Index, wantCol bool) map[string][]string {
	out := make(map[string][]string, len(attrs))
	for name, vals := range attrs {
		sub := make([]string, idx.Len())
		for i, v := range vals {
			if side[i] != wantCol {
				continue
			}
			id, _ := idx.ID(names[i])
			sub[id] = v
		}
		out[name] = sub
	}
	return out
}

// partitionSide interprets a partition attribute value.
func partitionSide(v string) (col bool, err error) {
	switch strings.ToLower(v) {
	case "0", "false", "row":
		return false, nil
	case "1", "true", "col":
		return true, nil
	case "":
		return false, fmt.Errorf("missing partition value")
	default:
		return false, fmt.Errorf("bad partition value %q", v)
	}
}

// edgeEndpoints validates and resolves an edge's node references.
func edgeEndpoints(e graphmlEdge, index *graph.Index) (int, int, error) {
	if e.Source == "" || e.Target == "" {
		return 0, 0, &FormatError{Reason: "edge without source or target"}
	}
	s, ok := index.ID(e.Source)
	if !ok {
		return 0, 0, &FormatError{Reason: fmt.Sprintf("edge references undeclared node %q", e.Source)}
	}
	t, ok := index.ID(e.Target)
	if !ok {
		return 0, 0, &FormatError{Reason: fmt.Sprintf("edge references undeclared node %q", e.Target)}
	}
	return s, t, nil
}

// edgeWeight reads the declared weight of an edge, defaulting to 1.
func edgeWeight(e graphmlEdge, weightKey string) (float64, error) {
	if weightKey == "" {
		return 1, nil
	}
	for _, d := range e.Data {
		if d.Key != weightKey {
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(d.Value), 64)
		if err != nil {
			return 0, &FormatError{Reason: fmt.Sprintf("bad edge weight %q", d.Value)}
		}
		return w, nil
	}
	return 1, nil
}
