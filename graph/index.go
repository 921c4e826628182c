package graph

// Index assigns dense integer ids to node names in first-occurrence order.
// Loading the same input twice therefore yields the same name ordering.
type Index struct {
	names []string
	ids   map[string]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{ids: make(map[string]int)}
}

// Add returns the id for name, assigning the next free id on first sight.
func (x *Index) Add(name string) int {
	if id, ok := x.ids[name]; ok {
		return id
	}
	id := len(x.names)
	x.names = append(x.names, name)
	x.ids[name] = id
	return id
}

// ID returns the id assigned to name, if any.
func (x *Index) ID(name string) (int, bool) {
	id, ok := x.ids[name]
	return id, ok
}

// Len returns the number of distinct names seen.
func (x *Index) Len() int { return len(x.names) }

// Names returns the names in id order. The slice is the index's backing
// storage; callers that keep it must not call Add afterwards.
func (x *Index) Names() []string { return x.names }
