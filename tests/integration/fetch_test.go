package integration

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// targz builds a small in-memory tar.gz archive.
func targz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for name, content := range files {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// testCatalog serves a NetSet-style index plus archives for both catalogs.
// Archives are keyed by the base name of the request path, which also
// covers Konect downloads (files/download.tsv.<name>.tar.bz2).
type testCatalog struct {
	index    map[string]map[string]string
	archives map[string][]byte
	requests atomic.Int32
}

func (c *testCatalog) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets.json", func(w http.ResponseWriter, r *http.Request) {
		c.requests.Add(1)
		json.NewEncoder(w).Encode(c.index)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		c.requests.Add(1)
		data, ok := c.archives[path.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// catalogEnv builds a hermetic environment for fetch runs: fresh data
// home, fresh config home, both catalogs pointed at the test server.
func catalogEnv(t *testing.T, url string) ([]string, string) {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "data")
	env := []string{
		"XDG_CONFIG_HOME=" + filepath.Join(t.TempDir(), "config"),
		"GRAPHSET_DATA=" + dataDir,
		"GRAPHSET_NETSET_URL=" + url,
		"GRAPHSET_KONECT_URL=" + url,
	}
	return env, dataDir
}

func TestFetchNetset(t *testing.T) {
	cat := &testCatalog{
		index: map[string]map[string]string{
			"openflights": {
				"file":  "files/openflights.tar.gz",
				"title": "Openflights routes",
			},
		},
		archives: map[string][]byte{
			"openflights.tar.gz": targz(t, map[string]string{
				"edges.tsv": "CDG\tJFK\nJFK\tSFO\n",
			}),
		},
	}
	srv := cat.server(t)
	env, _ := catalogEnv(t, srv.URL)

	output, err := runGset(t, t.TempDir(), env, "fetch", "netset", "openflights")
	if err != nil {
		t.Fatalf("fetch failed: %v\nOutput: %s", err, output)
	}

	got := parseBundle(t, output)
	if got.Name != "openflights" || got.Source != "netset" {
		t.Errorf("identity = %s/%s, want netset/openflights", got.Source, got.Name)
	}
	if got.Kind != "unipartite" || got.Rows != 3 || got.Edges != 4 {
		t.Errorf("shape = %s %dx%d %d edges, want unipartite 3x3 4 edges",
			got.Kind, got.Rows, got.Cols, got.Edges)
	}
	if got.Title != "Openflights routes" {
		t.Errorf("title = %q, want catalog title", got.Title)
	}
	if got.URL != srv.URL+"/files/openflights.tar.gz" {
		t.Errorf("url = %q, want the archive URL", got.URL)
	}

	// A second fetch parses the cached copy without touching the network.
	before := cat.requests.Load()
	output, err = runGset(t, t.TempDir(), env, "fetch", "--names", "netset", "openflights")
	if err != nil {
		t.Fatalf("cached fetch failed: %v\nOutput: %s", err, output)
	}
	if after := cat.requests.Load(); after != before {
		t.Errorf("cached fetch made %d requests", after-before)
	}
	got = parseBundle(t, output)
	if len(got.Names) != 3 || got.Names[0] != "CDG" {
		t.Errorf("names = %v, want [CDG JFK SFO]", got.Names)
	}
}

func TestFetchNetsetUnknown(t *testing.T) {
	cat := &testCatalog{index: map[string]map[string]string{}}
	srv := cat.server(t)
	env, _ := catalogEnv(t, srv.URL)

	output, err := runGset(t, t.TempDir(), env, "fetch", "netset", "ghost")
	if code := exitCode(t, err); code != 5 {
		t.Fatalf("exit code = %d, want 5\nOutput: %s", code, output)
	}
	// Only the index was fetched, never an archive.
	if n := cat.requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}

	var result struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON error: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(result.Error, "ghost") {
		t.Errorf("error = %q, want the dataset name", result.Error)
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	env, _ := catalogEnv(t, url)

	output, err := runGset(t, t.TempDir(), env, "fetch", "netset", "openflights")
	if code := exitCode(t, err); code != 4 {
		t.Fatalf("exit code = %d, want 4\nOutput: %s", code, output)
	}
}

func TestFetchKonect(t *testing.T) {
	cat := &testCatalog{
		archives: map[string][]byte{
			"download.tsv.moreno_crime.tar.bz2": targz(t, map[string]string{
				"moreno_crime/out.moreno_crime": "% sym unweighted\n1 2\n2 3\n",
			}),
		},
	}
	srv := cat.server(t)
	env, _ := catalogEnv(t, srv.URL)

	output, err := runGset(t, t.TempDir(), env, "fetch", "konect", "moreno_crime")
	if err != nil {
		t.Fatalf("fetch failed: %v\nOutput: %s", err, output)
	}

	got := parseBundle(t, output)
	if got.Name != "moreno_crime" || got.Source != "konect" {
		t.Errorf("identity = %s/%s, want konect/moreno_crime", got.Source, got.Name)
	}
	if got.Kind != "unipartite" || got.Directed {
		t.Errorf("shape = %s directed=%v, want undirected unipartite", got.Kind, got.Directed)
	}
	if got.Rows != 3 || got.Edges != 4 {
		t.Errorf("size = %d nodes %d edges, want 3 nodes 4 edges", got.Rows, got.Edges)
	}
}

func TestFetchKonectInvalidName(t *testing.T) {
	cat := &testCatalog{}
	srv := cat.server(t)
	env, _ := catalogEnv(t, srv.URL)

	output, err := runGset(t, t.TempDir(), env, "fetch", "konect", "No Spaces")
	if code := exitCode(t, err); code != 5 {
		t.Fatalf("exit code = %d, want 5\nOutput: %s", code, output)
	}
	// Malformed names are rejected before any network I/O.
	if n := cat.requests.Load(); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestCacheCommands(t *testing.T) {
	cat := &testCatalog{
		index: map[string]map[string]string{
			"tiny": {"file": "files/tiny.tar.gz"},
		},
		archives: map[string][]byte{
			"tiny.tar.gz": targz(t, map[string]string{
				"edges.tsv": "a\tb\n",
			}),
		},
	}
	srv := cat.server(t)
	env, dataDir := catalogEnv(t, srv.URL)
	workDir := t.TempDir()

	output, err := runGset(t, workDir, env, "fetch", "netset", "tiny")
	if err != nil {
		t.Fatalf("fetch failed: %v\nOutput: %s", err, output)
	}

	// ls lists the single cached dataset.
	output, err = runGset(t, workDir, env, "cache", "ls")
	if err != nil {
		t.Fatalf("cache ls failed: %v\nOutput: %s", err, output)
	}
	var list []struct {
		Source string `json:"source"`
		Name   string `json:"name"`
		Format string `json:"format"`
	}
	if err := json.Unmarshal([]byte(output), &list); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if len(list) != 1 || list[0].Source != "netset" || list[0].Name != "tiny" {
		t.Fatalf("cache ls = %+v, want [netset/tiny]", list)
	}

	// info shows the manifest entry with its file table.
	output, err = runGset(t, workDir, env, "cache", "info", "netset", "tiny")
	if err != nil {
		t.Fatalf("cache info failed: %v\nOutput: %s", err, output)
	}
	var info struct {
		Format string `json:"format"`
		Files  []struct {
			Path   string `json:"path"`
			Digest string `json:"digest"`
		} `json:"files"`
	}
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if info.Format != "edgelist" {
		t.Errorf("format = %q, want %q", info.Format, "edgelist")
	}
	if len(info.Files) != 1 || info.Files[0].Path != "edges.tsv" || info.Files[0].Digest == "" {
		t.Errorf("files = %+v, want digested edges.tsv", info.Files)
	}

	// verify passes on an untouched dataset.
	output, err = runGset(t, workDir, env, "cache", "verify", "netset", "tiny")
	if err != nil {
		t.Fatalf("cache verify failed: %v\nOutput: %s", err, output)
	}
	var verify struct {
		Status string `json:"status"`
		Drift  []struct {
			Path string `json:"path"`
		} `json:"drift"`
	}
	if err := json.Unmarshal([]byte(output), &verify); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if verify.Status != "clean" {
		t.Errorf("status = %q, want %q", verify.Status, "clean")
	}

	// Tampering with a cached file is reported as drift with exit code 3.
	edges := filepath.Join(dataDir, "netset", "tiny", "edges.tsv")
	if err := os.WriteFile(edges, []byte("tampered\tfile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	output, err = runGset(t, workDir, env, "cache", "verify", "netset", "tiny")
	if code := exitCode(t, err); code != 3 {
		t.Fatalf("exit code = %d, want 3\nOutput: %s", code, output)
	}
	if err := json.Unmarshal([]byte(output), &verify); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if verify.Status != "drift" || len(verify.Drift) != 1 || verify.Drift[0].Path != "edges.tsv" {
		t.Errorf("verify = %+v, want drift on edges.tsv", verify)
	}

	// rm deletes the dataset and its manifest entry.
	output, err = runGset(t, workDir, env, "cache", "rm", "netset", "tiny")
	if err != nil {
		t.Fatalf("cache rm failed: %v\nOutput: %s", err, output)
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(output), &status); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if status.Status != "removed" {
		t.Errorf("status = %q, want %q", status.Status, "removed")
	}

	output, err = runGset(t, workDir, env, "cache", "info", "netset", "tiny")
	if code := exitCode(t, err); code != 1 {
		t.Fatalf("exit code after rm = %d, want 1\nOutput: %s", code, output)
	}
}

func TestCachePath(t *testing.T) {
	env, dataDir := catalogEnv(t, "http://localhost:1")

	output, err := runGset(t, t.TempDir(), env, "cache", "path")
	if err != nil {
		t.Fatalf("cache path failed: %v\nOutput: %s", err, output)
	}
	var result struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if result.Path != dataDir {
		t.Errorf("path = %q, want %q", result.Path, dataDir)
	}
}

func TestCacheUnknownSource(t *testing.T) {
	env, _ := catalogEnv(t, "http://localhost:1")

	output, err := runGset(t, t.TempDir(), env, "cache", "info", "snap", "tiny")
	if code := exitCode(t, err); code != 1 {
		t.Fatalf("exit code = %d, want 1\nOutput: %s", code, output)
	}
}
