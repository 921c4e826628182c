package graph

import "testing"

func TestIndex_FirstOccurrenceOrder(t *testing.T) {
	x := NewIndex()

	ids := []int{
		x.Add("carol"),
		x.Add("alice"),
		x.Add("bob"),
		x.Add("alice"), // repeat keeps its first id
	}

	want := []int{0, 1, 2, 1}
	for i, id := range ids {
		if id != want[i] {
			t.Errorf("Add #%d = %d, want %d", i, id, want[i])
		}
	}

	names := x.Names()
	wantNames := []string{"carol", "alice", "bob"}
	if len(names) != len(wantNames) {
		t.Fatalf("Names() len = %d, want %d", len(names), len(wantNames))
	}
	for i, n := range wantNames {
		if names[i] != n {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], n)
		}
	}

	if x.Len() != 3 {
		t.Errorf("Len() = %d, want 3", x.Len())
	}
}

func TestIndex_ID(t *testing.T) {
	x := NewIndex()
	x.Add("a")

	if id, ok := x.ID("a"); !ok || id != 0 {
		t.Errorf("ID(a) = %d, %v, want 0, true", id, ok)
	}
	if _, ok := x.ID("missing"); ok {
		t.Error("ID(missing) reported present")
	}
}
