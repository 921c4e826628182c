package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/verger/graphset/graph"
	"github.com/verger/graphset/parse"
)

var (
	infoFormat    string
	infoDirected  bool
	infoBipartite bool
	infoDelimiter string
	infoNames     bool
)

func init() {
	infoCmd.Flags().StringVar(&infoFormat, "format", "auto", "File format: auto, edgelist or graphml")
	infoCmd.Flags().BoolVar(&infoDirected, "directed", false, "Treat edges as one-directional")
	infoCmd.Flags().BoolVar(&infoBipartite, "bipartite", false, "Treat the two columns as disjoint node sets")
	infoCmd.Flags().StringVar(&infoDelimiter, "delimiter", "", "Fix the column delimiter instead of sniffing it")
	infoCmd.Flags().BoolVar(&infoNames, "names", false, "Include the full node name lists")
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Parse a local graph file and summarize it",
	Long: `Parse a local graph file and summarize it.

Edge lists are two or three delimiter-separated columns per line
(source, target, optional weight) with the delimiter sniffed per file.
GraphML files are recognized by a .graphml or .xml extension, or can be
forced with --format graphml.

Examples:
  gset info edges.tsv
  gset info --bipartite ratings.csv
  gset info --format graphml --names network.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]

	var opts []parse.Option
	if infoDirected {
		opts = append(opts, parse.WithDirected())
	}
	if infoBipartite {
		opts = append(opts, parse.WithBipartite())
	}
	if infoDelimiter != "" {
		runes := []rune(infoDelimiter)
		if len(runes) != 1 {
			exitWithError(ExitError, "delimiter must be a single character, got %q", infoDelimiter)
		}
		opts = append(opts, parse.WithDelimiter(runes[0]))
	}

	b, err := loadLocal(path, opts)
	if err != nil {
		if parse.IsFormat(err) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	printBundle(b, infoNames)
	return nil
}

// loadLocal dispatches on the requested or inferred file format.
func loadLocal(path string, opts []parse.Option) (graph.Bundle, error) {
	format := infoFormat
	if format == "auto" {
		format = "edgelist"
		lower := strings.ToLower(path)
		if strings.HasSuffix(lower, ".graphml") || strings.HasSuffix(lower, ".xml") {
			format = "graphml"
		}
	}

	switch format {
	case "edgelist":
		return parse.EdgeListFile(path, opts...)
	case "graphml":
		return parse.GraphMLFile(path, opts...)
	default:
		exitWithError(ExitError, "unknown format %q (expected auto, edgelist or graphml)", infoFormat)
		return nil, nil // unreachable
	}
}
