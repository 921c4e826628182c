package parse

// Default attribute keys consulted by the GraphML parser.
const (
	DefaultLabelKey     = "label"
	DefaultPartitionKey = "part"
)

// options holds the resolved parser configuration.
type options struct {
	directed     bool
	bipartite    bool
	delimiter    rune // 0 means sniff from the first data line
	extraColumns bool
	labelKey     string
	partitionKey string
}

// Option configures a parser call.
type Option func(*options)

// WithDirected keeps edges as listed instead of symmetrizing them.
func WithDirected() Option {
	return func(o *options) { o.directed = true }
}

// WithBipartite treats the two columns (or the partition attribute, for
// GraphML) as disjoint vertex sets and builds a biadjacency matrix.
func WithBipartite() Option {
	return func(o *options) { o.bipartite = true }
}

// WithDelimiter fixes the edge-list column delimiter instead of sniffing it.
// Pass ' ' for arbitrary whitespace.
func WithDelimiter(d rune) Option {
	return func(o *options) { o.delimiter = d }
}

// WithExtraColumns ignores columns beyond the weight instead of rejecting
// the line. Konect edge files append timestamps this way.
func WithExtraColumns() Option {
	return func(o *options) { o.extraColumns = true }
}

// WithLabelKey names the GraphML node attribute promoted to bundle labels.
func WithLabelKey(key string) Option {
	return func(o *options) { o.labelKey = key }
}

// WithPartitionKey names the GraphML node attribute that assigns nodes to
// the row or column side of a bipartite graph.
func WithPartitionKey(key string) Option {
	return func(o *options) { o.partitionKey = key }
}

// gather resolves opts against the defaults.
func gather(opts []Option) options {
	o := options{
		labelKey:     DefaultLabelKey,
		partitionKey: DefaultPartitionKey,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
