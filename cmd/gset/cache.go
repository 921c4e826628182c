package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/verger/graphset/datasets"
)

func init() {
	cacheCmd.AddCommand(cachePathCmd)
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheVerifyCmd)
	cacheCmd.AddCommand(cacheRmCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the dataset cache",
	Long: `Inspect and manage the dataset cache.

Downloaded datasets live under the data home (default ~/.cache/graphset),
one directory per dataset plus a manifest database recording archive and
file digests.

Examples:
  gset cache ls
  gset cache info netset openflights
  gset cache verify netset openflights
  gset cache rm konect moreno_crime`,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved data home",
	Args:  cobra.NoArgs,
	RunE:  runCachePath,
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached datasets",
	Args:  cobra.NoArgs,
	RunE:  runCacheLs,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info <source> <name>",
	Short: "Show the manifest entry of one cached dataset",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheInfo,
}

var cacheVerifyCmd = &cobra.Command{
	Use:   "verify <source> <name>",
	Short: "Rehash a cached dataset against its manifest digests",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheVerify,
}

var cacheRmCmd = &cobra.Command{
	Use:   "rm <source> <name>",
	Short: "Delete a cached dataset",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheRm,
}

// DatasetResponse is one manifest entry.
type DatasetResponse struct {
	Source        string `json:"source"`
	Name          string `json:"name"`
	Title         string `json:"title,omitempty"`
	Format        string `json:"format"`
	Directed      bool   `json:"directed,omitempty"`
	Bipartite     bool   `json:"bipartite,omitempty"`
	FetchedAt     string `json:"fetched_at"`
	ArchiveBytes  int64  `json:"archive_bytes"`
	ArchiveDigest string `json:"archive_digest,omitempty"`
	URL           string `json:"url,omitempty"`
}

// FileResponse is one extracted file of a cached dataset.
type FileResponse struct {
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	Digest string `json:"digest"`
}

// CacheInfoResponse is the response for cache info.
type CacheInfoResponse struct {
	DatasetResponse
	Files []FileResponse `json:"files"`
}

// VerifyResponse is the response for cache verify.
type VerifyResponse struct {
	Status string          `json:"status"` // "clean" or "drift"
	Drift  []DriftResponse `json:"drift,omitempty"`
}

// DriftResponse is one file that no longer matches its manifest digest.
type DriftResponse struct {
	Path string `json:"path"`
	Want string `json:"want"`
	Got  string `json:"got,omitempty"` // empty when the file is missing
}

func datasetResponse(rec datasets.Record) DatasetResponse {
	return DatasetResponse{
		Source:        rec.Source,
		Name:          rec.Name,
		Title:         rec.Title,
		Format:        rec.Format,
		Directed:      rec.Directed,
		Bipartite:     rec.Bipartite,
		FetchedAt:     rec.FetchedAt.Format(time.RFC3339),
		ArchiveBytes:  rec.ArchiveBytes,
		ArchiveDigest: rec.ArchiveDigest,
		URL:           rec.URL,
	}
}

// mustSource validates the <source> argument.
func mustSource(arg string) string {
	if arg != datasets.SourceNetSet && arg != datasets.SourceKonect {
		exitWithError(ExitError, "unknown source %q (expected %s or %s)",
			arg, datasets.SourceNetSet, datasets.SourceKonect)
	}
	return arg
}

func runCachePath(cmd *cobra.Command, args []string) error {
	l := mustNewLoader()
	defer l.Close()

	if humanOutput {
		fmt.Println(l.Home())
	} else {
		outputJSON(map[string]string{"path": l.Home()})
	}
	return nil
}

func runCacheLs(cmd *cobra.Command, args []string) error {
	l := mustNewLoader()
	defer l.Close()

	recs, err := l.List()
	if err != nil {
		exitWithError(ExitError, "listing cache: %v", err)
	}

	if !humanOutput {
		out := make([]DatasetResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, datasetResponse(rec))
		}
		outputJSON(out)
		return nil
	}

	if len(recs) == 0 {
		fmt.Println("cache is empty")
		return nil
	}
	for _, rec := range recs {
		line := fmt.Sprintf("%s/%s  %s  fetched %s",
			rec.Source, rec.Name,
			formatBytes(rec.ArchiveBytes),
			rec.FetchedAt.Format("2006-01-02"))
		if rec.Title != "" {
			line += "  " + rec.Title
		}
		fmt.Println(line)
	}
	return nil
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	source, name := mustSource(args[0]), args[1]
	l := mustNewLoader()
	defer l.Close()

	rec, files, err := l.Info(source, name)
	if err != nil {
		exitWithError(ExitError, "reading manifest: %v", err)
	}
	if rec == nil {
		exitWithError(ExitError, "dataset %s/%s is not cached", source, name)
	}

	if !humanOutput {
		resp := CacheInfoResponse{DatasetResponse: datasetResponse(*rec)}
		for _, f := range files {
			resp.Files = append(resp.Files, FileResponse{Path: f.Path, Bytes: f.Bytes, Digest: f.Digest})
		}
		outputJSON(resp)
		return nil
	}

	fmt.Printf("dataset:  %s/%s\n", rec.Source, rec.Name)
	if rec.Title != "" {
		fmt.Printf("title:    %s\n", rec.Title)
	}
	fmt.Printf("format:   %s\n", describeRecord(rec))
	fmt.Printf("fetched:  %s\n", rec.FetchedAt.Format("2006-01-02 15:04"))
	fmt.Printf("archive:  %s (%s)\n", formatBytes(rec.ArchiveBytes), rec.URL)
	fmt.Printf("files:\n")
	for _, f := range files {
		fmt.Printf("  %s  %s\n", f.Path, formatBytes(f.Bytes))
	}
	return nil
}

func describeRecord(rec *datasets.Record) string {
	s := rec.Format
	if rec.Bipartite {
		s += ", bipartite"
	} else if rec.Directed {
		s += ", directed"
	}
	return s
}

func runCacheVerify(cmd *cobra.Command, args []string) error {
	source, name := mustSource(args[0]), args[1]
	l := mustNewLoader()
	defer l.Close()

	drift, err := l.Verify(source, name)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if len(drift) == 0 {
		if humanOutput {
			fmt.Printf("%s/%s: all files match\n", source, name)
		} else {
			outputJSON(VerifyResponse{Status: "clean"})
		}
		return nil
	}

	if humanOutput {
		for _, d := range drift {
			if d.Got == "" {
				fmt.Printf("%s: missing\n", d.Path)
			} else {
				fmt.Printf("%s: digest mismatch\n", d.Path)
			}
		}
	} else {
		resp := VerifyResponse{Status: "drift"}
		for _, d := range drift {
			resp.Drift = append(resp.Drift, DriftResponse{Path: d.Path, Want: d.Want, Got: d.Got})
		}
		outputJSON(resp)
	}
	os.Exit(ExitDataError)
	return nil
}

func runCacheRm(cmd *cobra.Command, args []string) error {
	source, name := mustSource(args[0]), args[1]
	l := mustNewLoader()
	defer l.Close()

	if err := l.Remove(source, name); err != nil {
		exitWithError(ExitError, "removing dataset: %v", err)
	}

	if humanOutput {
		fmt.Printf("removed %s/%s\n", source, name)
	} else {
		outputJSON(StatusResponse{Status: "removed"})
	}
	return nil
}
