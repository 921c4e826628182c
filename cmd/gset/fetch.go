package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/verger/graphset/datasets"
	"github.com/verger/graphset/graph"
)

var fetchNames bool

func init() {
	fetchCmd.PersistentFlags().BoolVar(&fetchNames, "names", false, "Include the full node name lists")
	fetchCmd.AddCommand(fetchNetsetCmd)
	fetchCmd.AddCommand(fetchKonectCmd)
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Load a named dataset from a remote catalog",
	Long: `Load a named dataset from a remote catalog.

The dataset archive is downloaded into the local cache on first use;
later fetches parse the cached files without touching the network.

Examples:
  gset fetch netset openflights
  gset fetch konect moreno_crime`,
}

var fetchNetsetCmd = &cobra.Command{
	Use:   "netset <name>",
	Short: "Load a dataset from the NetSet catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetchNetset,
}

var fetchKonectCmd = &cobra.Command{
	Use:   "konect <name>",
	Short: "Load a dataset from the Konect collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetchKonect,
}

func runFetchNetset(cmd *cobra.Command, args []string) error {
	runFetch(args[0], func(ctx context.Context, l *datasets.Loader, name string) (graph.Bundle, error) {
		return l.NetSet(ctx, name)
	})
	return nil
}

func runFetchKonect(cmd *cobra.Command, args []string) error {
	runFetch(args[0], func(ctx context.Context, l *datasets.Loader, name string) (graph.Bundle, error) {
		return l.Konect(ctx, name)
	})
	return nil
}

func runFetch(name string, load func(context.Context, *datasets.Loader, string) (graph.Bundle, error)) {
	l := mustNewLoader()
	defer l.Close()

	b, err := load(context.Background(), l, name)
	if err != nil {
		exitLoadError(err)
	}
	printBundle(b, fetchNames)
}
