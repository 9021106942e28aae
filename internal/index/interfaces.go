// Package index is the capability façade over the concrete index
// implementation the rest of zvdb programs against. HNSW is the only
// implementation: there is no registry or dynamic dispatch, since
// introducing one for a single concrete type would only add an
// indirection with nothing on the other end of it.
package index

import (
	"io"

	"github.com/zvdb-io/zvdb/internal/index/hnsw"
	"github.com/zvdb-io/zvdb/internal/store"
	"github.com/zvdb-io/zvdb/internal/vecmath"
)

// Result is a single nearest-neighbor hit.
type Result = hnsw.Result

// Config configures the HNSW index.
type Config struct {
	Dimension      int
	M              int
	EfConstruction int
	EfSearch       int
	Metric         vecmath.Metric
	RandomSeed     int64
}

// Index is the capability surface the façade exposes: add, search,
// delete, update, size, close. It has no serialize/deserialize methods of
// its own; persistence works on the parts returned by Store and Graph, and
// FromParts wraps a loaded pair.
type Index struct {
	graph *hnsw.Graph
	store *store.Store
}

// New builds an index over a fresh vector store.
func New(config Config) (*Index, error) {
	vs := store.New(config.Dimension)
	graph, err := hnsw.New(hnsw.Config{
		Dimension:      config.Dimension,
		M:              config.M,
		EfConstruction: config.EfConstruction,
		EfSearch:       config.EfSearch,
		Metric:         config.Metric,
		RandomSeed:     config.RandomSeed,
	}, vs)
	if err != nil {
		return nil, err
	}
	return &Index{graph: graph, store: vs}, nil
}

// FromParts wraps an already-populated graph and store (typically the
// result of persist.Load) as an Index, without constructing a fresh
// empty graph the way New does.
func FromParts(vs *store.Store, graph *hnsw.Graph) *Index {
	return &Index{graph: graph, store: vs}
}

// Insert stores vector and metadata, returning the freshly assigned id.
// The graph itself owns writing vector into the store, before it wires
// the new node in, since the id doesn't exist until the graph mints it.
func (ix *Index) Insert(vector []float32, metadata []byte) (uint64, error) {
	return ix.graph.Insert(vector, metadata)
}

// Search returns the k nearest live neighbors of query.
func (ix *Index) Search(query []float32, k int) ([]Result, error) {
	return ix.graph.SearchKNN(query, k)
}

// Delete removes id from both the graph and the store.
func (ix *Index) Delete(id uint64) error {
	if err := ix.graph.Delete(id); err != nil {
		return err
	}
	return ix.store.Delete(id)
}

// Update replaces the vector stored at id, preserving id. The store is
// updated first (nil metadata leaves the existing metadata untouched),
// so that when graph.Update reinserts the node, its neighbor pruning
// scores it by the new vector rather than the one it's replacing.
func (ix *Index) Update(id uint64, vector []float32) error {
	if err := ix.store.Update(id, vector, nil); err != nil {
		return err
	}
	return ix.graph.Update(id, vector)
}

// Size returns the number of live vectors.
func (ix *Index) Size() int { return ix.graph.Size() }

// Dimension returns the configured vector width.
func (ix *Index) Dimension() int { return ix.store.Dimension() }

// Store exposes the backing vector store for persistence.
func (ix *Index) Store() *store.Store { return ix.store }

// Graph exposes the backing HNSW graph for persistence.
func (ix *Index) Graph() *hnsw.Graph { return ix.graph }

// Close releases any resources held by the index. HNSW and the in-memory
// store hold none of their own; Close exists so callers have a single
// symmetric Open/Close lifecycle regardless of what backs the index.
func (ix *Index) Close() error { return nil }

var _ io.Closer = (*Index)(nil)
