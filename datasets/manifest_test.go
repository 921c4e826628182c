package datasets

import (
	"path/filepath"
	"testing"
	"time"
)

func testManifest(t *testing.T) *Manifest {
	t.Helper()
	m, err := OpenManifest(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("opening manifest: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func sampleRecord() Record {
	return Record{
		Source:        SourceNetSet,
		Name:          "openflights",
		URL:           "https://example.org/files/openflights.tar.gz",
		FetchedAt:     time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		ArchiveBytes:  4096,
		ArchiveDigest: "ab12",
		Format:        "edgelist",
		Directed:      false,
		Bipartite:     true,
		Title:         "Openflights",
		Description:   "airport network",
	}
}

func TestManifest_PutGet(t *testing.T) {
	m := testManifest(t)

	rec := sampleRecord()
	files := []FileRecord{
		{Path: "edges.tsv", Bytes: 120, Digest: "aa"},
		{Path: "meta.yaml", Bytes: 40, Digest: "bb"},
	}
	if err := m.Put(rec, files); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Get(rec.Source, rec.Name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record")
	}
	if *got != rec {
		t.Errorf("record mismatch:\n got %+v\nwant %+v", *got, rec)
	}

	gotFiles, err := m.Files(rec.Source, rec.Name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotFiles) != 2 {
		t.Fatalf("expected 2 file rows, got %d", len(gotFiles))
	}
	// Ordered by path.
	if gotFiles[0].Path != "edges.tsv" || gotFiles[1].Path != "meta.yaml" {
		t.Errorf("unexpected file order: %+v", gotFiles)
	}
}

func TestManifest_GetMissing(t *testing.T) {
	m := testManifest(t)

	rec, err := m.Get(SourceKonect, "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
}

func TestManifest_PutReplaces(t *testing.T) {
	m := testManifest(t)

	rec := sampleRecord()
	if err := m.Put(rec, []FileRecord{{Path: "old.tsv", Bytes: 1, Digest: "old"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec.ArchiveDigest = "cd34"
	rec.Title = "Openflights v2"
	if err := m.Put(rec, []FileRecord{{Path: "edges.tsv", Bytes: 2, Digest: "new"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Get(rec.Source, rec.Name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ArchiveDigest != "cd34" || got.Title != "Openflights v2" {
		t.Errorf("expected replaced record, got %+v", got)
	}

	files, err := m.Files(rec.Source, rec.Name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Path != "edges.tsv" {
		t.Errorf("expected old file rows replaced, got %+v", files)
	}
}

func TestManifest_Remove(t *testing.T) {
	m := testManifest(t)

	rec := sampleRecord()
	if err := m.Put(rec, []FileRecord{{Path: "edges.tsv", Bytes: 1, Digest: "aa"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Remove(rec.Source, rec.Name); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Get(rec.Source, rec.Name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected record gone, got %+v", got)
	}
	files, err := m.Files(rec.Source, rec.Name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected file rows gone, got %+v", files)
	}
}

func TestManifest_List(t *testing.T) {
	m := testManifest(t)

	a := sampleRecord()
	b := sampleRecord()
	b.Source = SourceKonect
	b.Name = "moreno_crime"
	b.Title = ""
	b.Description = ""

	if err := m.Put(b, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Put(a, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recs, err := m.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	// Ordered by source then name.
	if recs[0].Source != SourceKonect || recs[1].Source != SourceNetSet {
		t.Errorf("unexpected order: %+v", recs)
	}
	if recs[0].Title != "" {
		t.Errorf("expected empty title to round-trip, got %q", recs[0].Title)
	}
}
