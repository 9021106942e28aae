// Package hnsw implements a concurrent Hierarchical Navigable Small World
// graph: the approximate nearest-neighbor index at the core of zvdb.
package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/zvdb-io/zvdb/internal/store"
	"github.com/zvdb-io/zvdb/internal/vecmath"
)

// Config holds the tunable HNSW parameters. All of them, EfSearch
// included, are fixed for the lifetime of a Graph.
type Config struct {
	Dimension      int
	M              int
	EfConstruction int
	EfSearch       int
	Metric         vecmath.Metric
	RandomSeed     int64
}

func (c *Config) validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("hnsw: dimension must be positive, got %d", c.Dimension)
	}
	if c.M <= 1 {
		return fmt.Errorf("hnsw: M must be at least 2, got %d", c.M)
	}
	if c.EfConstruction <= 0 {
		return fmt.Errorf("hnsw: efConstruction must be positive, got %d", c.EfConstruction)
	}
	if c.EfSearch <= 0 {
		return fmt.Errorf("hnsw: efSearch must be positive, got %d", c.EfSearch)
	}
	return nil
}

// Graph is a concurrent HNSW index over float32 vectors stored in a
// separate *store.Store. The global mu guards structural state — the node
// set, the entry point, and maxLevel — while each node's own lock guards
// its link lists during concurrent traversal.
type Graph struct {
	mu     sync.RWMutex
	config Config
	kernel vecmath.Float32Func
	store  *store.Store

	nodes      map[uint64]*node
	entryPoint uint64
	hasEntry   bool
	maxLevel   int
	liveCount  int

	nextID    uint64
	rng       *rand.Rand
	rngMu     sync.Mutex
	mLevel    float64
	maxLevelN int
}

// New builds an empty graph backed by vs. vs must already be configured
// for config.Dimension.
func New(config Config, vs *store.Store) (*Graph, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	kernel, err := vecmath.Float32Kernel(config.Metric)
	if err != nil {
		return nil, fmt.Errorf("hnsw: %w", err)
	}
	return &Graph{
		config:    config,
		kernel:    kernel,
		store:     vs,
		nodes:     make(map[uint64]*node),
		maxLevel:  -1,
		rng:       rand.New(rand.NewSource(config.RandomSeed)),
		mLevel:    1 / math.Log(float64(config.M)),
		maxLevelN: 32,
	}, nil
}

// generateLevel draws a node level from the classical HNSW recipe
// L = floor(-ln(U) * mL), U uniform in [0, 1) with a draw of 0 replaced by
// the smallest positive float64 so the logarithm stays finite. The level is capped to
// guard against the vanishingly small chance of an absurdly tall graph.
func (g *Graph) generateLevel() int {
	g.rngMu.Lock()
	u := g.rng.Float64()
	g.rngMu.Unlock()
	if u <= 0 {
		u = math.SmallestNonzeroFloat64
	}
	level := int(math.Floor(-math.Log(u) * g.mLevel))
	if level > g.maxLevelN {
		level = g.maxLevelN
	}
	return level
}

// distance computes the configured metric between two stored vectors.
func (g *Graph) distance(a, b []float32) (float32, error) {
	return g.kernel(a, b)
}

// Size returns the number of live (non-deleted) nodes.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.liveCount
}

// Dimension returns the configured vector width.
func (g *Graph) Dimension() int { return g.config.Dimension }

// Metric returns the configured distance metric.
func (g *Graph) Metric() vecmath.Metric { return g.config.Metric }

// SortedIDs returns all live node ids in ascending order.
func (g *Graph) SortedIDs() []uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]uint64, 0, g.liveCount)
	for id, n := range g.nodes {
		if !n.deleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ValidateNeighborsResolve checks that every neighbor id referenced by
// any live node's link lists resolves to another live node, catching a
// corrupted or partially-written graph after deserialization.
func (g *Graph) ValidateNeighborsResolve() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, n := range g.nodes {
		if n.deleted {
			continue
		}
		for level := 0; level <= n.level; level++ {
			for _, nb := range n.neighbors(level) {
				target, ok := g.nodes[nb]
				if !ok || target.deleted {
					return fmt.Errorf("hnsw: node %d references unresolved neighbor %d at level %d", id, nb, level)
				}
			}
		}
	}
	return nil
}

// nextNodeID returns a fresh, never-reused id. The graph never reuses an
// id after a delete: ids are handed out by this monotonic counter alone,
// independent of how many live nodes remain or how nodes are stored.
func (g *Graph) nextNodeID() uint64 {
	id := g.nextID
	g.nextID++
	return id
}
