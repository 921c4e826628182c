package graph

// Kind discriminates the two bundle shapes.
type Kind int

const (
	// Unipartite bundles carry a square adjacency matrix.
	KindUnipartite Kind = iota
	// Bipartite bundles carry a rectangular biadjacency matrix.
	KindBipartite
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnipartite:
		return "unipartite"
	case KindBipartite:
		return "bipartite"
	default:
		return "unknown"
	}
}

// Metadata records where a bundle came from. Local file loads leave it at
// the zero value apart from Name; remote loads fill it from the catalog.
type Metadata struct {
	Name        string // dataset or file name
	Source      string // "netset", "konect", or "" for local files
	Title       string
	Description string
	URL         string // archive or catalog URL for remote loads
}

// Bundle is the uniform result of every loader. It is a sealed tagged
// variant: exactly one of Unipartite or Bipartite per load, so callers never
// test matrix fields for absence. Bundles are immutable once constructed.
type Bundle interface {
	// Kind reports which concrete shape the bundle has.
	Kind() Kind
	// NumNodes is the total node count (rows plus columns for bipartite).
	NumNodes() int
	// NumEdges is the number of stored matrix entries. Undirected graphs
	// store each edge in both directions.
	NumEdges() int
	// Meta returns the bundle provenance.
	Meta() Metadata

	sealed()
}

// Unipartite is a graph over a single vertex set.
type Unipartite struct {
	// Adjacency is square: Adjacency.Rows() == Adjacency.Cols() == len(Names).
	Adjacency *Matrix
	// Names holds one label per node, in index order.
	Names []string
	// Labels optionally maps node index to a ground-truth category.
	Labels map[int]string
	// Attributes holds extra per-node values from formats that carry them,
	// keyed by attribute name with one value per node in index order.
	Attributes map[string][]string
	// Directed records whether the source declared directed edges. When
	// false the adjacency has been symmetrized.
	Directed bool
	// Metadata describes the bundle's origin.
	Metadata Metadata
}

// Kind returns KindUnipartite.
func (u *Unipartite) Kind() Kind { return KindUnipartite }

// NumNodes returns the size of the vertex set.
func (u *Unipartite) NumNodes() int { return u.Adjacency.Rows() }

// NumEdges returns the number of stored adjacency entries.
func (u *Unipartite) NumEdges() int { return u.Adjacency.NNZ() }

// Meta returns the bundle provenance.
func (u *Unipartite) Meta() Metadata { return u.Metadata }

func (u *Unipartite) sealed() {}

// Bipartite is a graph over two disjoint vertex sets with edges only
// between them.
type Bipartite struct {
	// Biadjacency is rectangular: len(NamesRow) x len(NamesCol).
	Biadjacency *Matrix
	// NamesRow and NamesCol hold the labels of the two sides.
	NamesRow []string
	NamesCol []string
	// LabelsRow and LabelsCol optionally map node indices to categories.
	LabelsRow map[int]string
	LabelsCol map[int]string
	// AttributesRow and AttributesCol hold extra per-node values, keyed by
	// attribute name with one value per node on that side.
	AttributesRow map[string][]string
	AttributesCol map[string][]string
	// Metadata describes the bundle's origin.
	Metadata Metadata
}

// Kind returns KindBipartite.
func (b *Bipartite) Kind() Kind { return KindBipartite }

// NumNodes returns the combined size of both vertex sets.
func (b *Bipartite) NumNodes() int { return b.Biadjacency.Rows() + b.Biadjacency.Cols() }

// NumEdges returns the number of stored biadjacency entries.
func (b *Bipartite) NumEdges() int { return b.Biadjacency.NNZ() }

// Meta returns the bundle provenance.
func (b *Bipartite) Meta() Metadata { return b.Metadata }

func (b *Bipartite) sealed() {}
