package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/verger/graphset/graph"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// BundleResponse summarizes a loaded graph.
type BundleResponse struct {
	Name        string   `json:"name,omitempty"`
	Source      string   `json:"source,omitempty"`
	Kind        string   `json:"kind"`
	Directed    bool     `json:"directed,omitempty"`
	Rows        int      `json:"rows"`
	Cols        int      `json:"cols"`
	Edges       int      `json:"edges"`
	Labeled     int      `json:"labeled,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Names       []string `json:"names,omitempty"`
	NamesRow    []string `json:"names_row,omitempty"`
	NamesCol    []string `json:"names_col,omitempty"`
}

// bundleResponse flattens a bundle for output. Name lists are omitted
// unless includeNames is set.
func bundleResponse(b graph.Bundle, includeNames bool) BundleResponse {
	meta := b.Meta()
	r := BundleResponse{
		Name:        meta.Name,
		Source:      meta.Source,
		Kind:        b.Kind().String(),
		Edges:       b.NumEdges(),
		Title:       meta.Title,
		Description: meta.Description,
		URL:         meta.URL,
	}

	switch v := b.(type) {
	case *graph.Unipartite:
		r.Directed = v.Directed
		r.Rows = v.Adjacency.Rows()
		r.Cols = v.Adjacency.Cols()
		r.Labeled = len(v.Labels)
		if includeNames {
			r.Names = v.Names
		}
	case *graph.Bipartite:
		r.Rows = v.Biadjacency.Rows()
		r.Cols = v.Biadjacency.Cols()
		r.Labeled = len(v.LabelsRow) + len(v.LabelsCol)
		if includeNames {
			r.NamesRow = v.NamesRow
			r.NamesCol = v.NamesCol
		}
	}
	return r
}

// printBundle writes a bundle summary in the selected format.
func printBundle(b graph.Bundle, includeNames bool) {
	r := bundleResponse(b, includeNames)
	if !humanOutput {
		outputJSON(r)
		return
	}

	if r.Source != "" {
		fmt.Printf("name:     %s (%s)\n", r.Name, r.Source)
	} else {
		fmt.Printf("name:     %s\n", r.Name)
	}
	fmt.Printf("kind:     %s\n", describeKind(r))
	if r.Kind == "bipartite" {
		fmt.Printf("size:     %d x %d, %d edges\n", r.Rows, r.Cols, r.Edges)
	} else {
		fmt.Printf("size:     %d nodes, %d edges\n", r.Rows, r.Edges)
	}
	if r.Labeled > 0 {
		fmt.Printf("labels:   %d\n", r.Labeled)
	}
	if r.Title != "" {
		fmt.Printf("title:    %s\n", r.Title)
	}
	if r.URL != "" {
		fmt.Printf("url:      %s\n", r.URL)
	}
	if includeNames {
		printNamesHuman(r)
	}
}

func describeKind(r BundleResponse) string {
	if r.Kind == "unipartite" && r.Directed {
		return "unipartite, directed"
	}
	if r.Kind == "unipartite" {
		return "unipartite, undirected"
	}
	return r.Kind
}

func printNamesHuman(r BundleResponse) {
	if len(r.Names) > 0 {
		fmt.Println("nodes:")
		for _, n := range r.Names {
			fmt.Printf("  %s\n", n)
		}
	}
	if len(r.NamesRow) > 0 {
		fmt.Println("rows:")
		for _, n := range r.NamesRow {
			fmt.Printf("  %s\n", n)
		}
	}
	if len(r.NamesCol) > 0 {
		fmt.Println("cols:")
		for _, n := range r.NamesCol {
			fmt.Printf("  %s\n", n)
		}
	}
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
