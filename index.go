// Package zvdb is an embeddable approximate nearest-neighbor vector
// index backed by HNSW: a single index handle opened with Open, closed
// with Close, with insert/search/delete/update and disk persistence.
package zvdb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zvdb-io/zvdb/internal/index"
	"github.com/zvdb-io/zvdb/internal/index/hnsw"
	"github.com/zvdb-io/zvdb/internal/obs"
	"github.com/zvdb-io/zvdb/internal/persist"
	"github.com/zvdb-io/zvdb/internal/quant"
	"github.com/zvdb-io/zvdb/internal/store"
	"github.com/zvdb-io/zvdb/internal/zvdberr"
)

// Result is a single nearest-neighbor hit: an id and its distance from
// the query under the index's configured metric.
type Result = index.Result

// quantizationTrainingWindow is how many inserted vectors are buffered
// before the optional scalar quantizer trains, once, from that sample.
const quantizationTrainingWindow = 256

// Index is a single HNSW-backed approximate nearest-neighbor index: the
// library's public handle, opened via Open and released via Close.
type Index struct {
	mu      sync.RWMutex
	cfg     Config
	idx     *index.Index
	metrics *obs.Metrics

	quantizer     *quant.ScalarQuantizer
	quantTraining [][]float32
	compressed    map[uint64][]byte

	closed bool
}

// Open builds a fresh, empty index. cfg.Dimension and cfg.DistanceMetric
// are required; opts may further customize M, EfConstruction, EfSearch,
// StoragePath, RandomSeed, and optional quantization, overriding whatever
// cfg itself set for those fields.
func Open(cfg Config, opts ...Option) (*Index, error) {
	merged := defaultConfig(cfg.Dimension, cfg.DistanceMetric)
	merged.StoragePath = cfg.StoragePath
	merged.RandomSeed = cfg.RandomSeed
	merged.Quantization = cfg.Quantization
	if cfg.M != 0 {
		merged.M = cfg.M
	}
	if cfg.EfConstruction != 0 {
		merged.EfConstruction = cfg.EfConstruction
	}
	if cfg.EfSearch != 0 {
		merged.EfSearch = cfg.EfSearch
	}
	for _, opt := range opts {
		if err := opt(merged); err != nil {
			return nil, zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", err)
		}
	}
	if err := merged.validate(); err != nil {
		return nil, err
	}

	idx, err := index.New(index.Config{
		Dimension:      merged.Dimension,
		M:              merged.M,
		EfConstruction: merged.EfConstruction,
		EfSearch:       merged.EfSearch,
		Metric:         merged.DistanceMetric,
		RandomSeed:     merged.RandomSeed,
	})
	if err != nil {
		return nil, zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", err)
	}

	ix := &Index{
		cfg:     *merged,
		idx:     idx,
		metrics: obs.NewMetrics(),
	}
	if merged.Quantization != nil {
		q, err := quant.NewScalarQuantizer(&quant.Config{
			Bits:       merged.Quantization.Bits,
			TrainRatio: merged.Quantization.TrainRatio,
		})
		if err != nil {
			return nil, zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", err)
		}
		ix.quantizer = q
		ix.compressed = make(map[uint64][]byte)
	}
	return ix, nil
}

// Close marks the index unusable for further operations. An in-memory
// index holds no OS resources of its own; Close exists so callers have
// one symmetric Open/Close lifecycle regardless of what backs an index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.closed = true
	return ix.idx.Close()
}

// Insert stores vector and metadata, returning the freshly assigned id.
func (ix *Index) Insert(vector []float32, metadata []byte) (uint64, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return 0, zvdberr.New(zvdberr.IoError, "Insert")
	}
	if len(vector) != ix.cfg.Dimension {
		return 0, zvdberr.Wrap(zvdberr.DimensionMismatch, "Insert",
			fmt.Errorf("vector has %d dimensions, index has %d", len(vector), ix.cfg.Dimension))
	}

	id, err := ix.idx.Insert(vector, metadata)
	if err != nil {
		return 0, zvdberr.Wrap(zvdberr.DimensionMismatch, "Insert", err)
	}
	ix.metrics.Inserts.Inc()
	ix.metrics.IndexSize.Set(float64(ix.idx.Size()))
	ix.trackForQuantization(id, vector)
	return id, nil
}

// SearchKNN returns the k nearest live neighbors of query.
func (ix *Index) SearchKNN(query []float32, k int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, zvdberr.New(zvdberr.IoError, "SearchKNN")
	}
	if len(query) != ix.cfg.Dimension {
		return nil, zvdberr.Wrap(zvdberr.DimensionMismatch, "SearchKNN",
			fmt.Errorf("query has %d dimensions, index has %d", len(query), ix.cfg.Dimension))
	}
	ix.metrics.SearchQueries.Inc()
	timer := prometheus.NewTimer(ix.metrics.SearchLatency)
	results, err := ix.idx.Search(query, k)
	timer.ObserveDuration()
	if err != nil {
		ix.metrics.SearchErrors.Inc()
		return nil, zvdberr.Wrap(zvdberr.DimensionMismatch, "SearchKNN", err)
	}
	return results, nil
}

// Delete removes id from the index.
func (ix *Index) Delete(id uint64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return zvdberr.New(zvdberr.IoError, "Delete")
	}
	if err := ix.idx.Delete(id); err != nil {
		return zvdberr.Wrap(zvdberr.NodeNotFound, "Delete", err)
	}
	ix.metrics.Deletes.Inc()
	ix.metrics.IndexSize.Set(float64(ix.idx.Size()))
	delete(ix.compressed, id)
	return nil
}

// Update replaces the vector stored at id, preserving id.
func (ix *Index) Update(id uint64, vector []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return zvdberr.New(zvdberr.IoError, "Update")
	}
	if len(vector) != ix.cfg.Dimension {
		return zvdberr.Wrap(zvdberr.DimensionMismatch, "Update",
			fmt.Errorf("vector has %d dimensions, index has %d", len(vector), ix.cfg.Dimension))
	}
	if err := ix.idx.Update(id, vector); err != nil {
		return zvdberr.Wrap(zvdberr.NodeNotFound, "Update", err)
	}
	ix.metrics.Updates.Inc()
	ix.trackForQuantization(id, vector)
	return nil
}

// Size returns the number of live vectors.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.idx.Size()
}

// Save writes the index to path, or to cfg.StoragePath if path is empty.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	path = ix.resolvePath(path)
	if path == "" {
		return zvdberr.New(zvdberr.InvalidConfiguration, "Save")
	}
	if err := persist.Save(path, ix.idx.Store(), ix.idx.Graph()); err != nil {
		return zvdberr.Wrap(zvdberr.IoError, "Save", err)
	}
	return nil
}

// Load replaces ix's contents with what was saved at path (or
// cfg.StoragePath if path is empty). ix must already be configured for
// the same dimension and metric as the saved file.
func (ix *Index) Load(path string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	path = ix.resolvePath(path)
	if path == "" {
		return zvdberr.New(zvdberr.InvalidConfiguration, "Load")
	}

	vs := store.New(ix.cfg.Dimension)
	g, err := hnsw.New(hnsw.Config{
		Dimension:      ix.cfg.Dimension,
		M:              ix.cfg.M,
		EfConstruction: ix.cfg.EfConstruction,
		EfSearch:       ix.cfg.EfSearch,
		Metric:         ix.cfg.DistanceMetric,
		RandomSeed:     ix.cfg.RandomSeed,
	}, vs)
	if err != nil {
		return zvdberr.Wrap(zvdberr.InvalidConfiguration, "Load", err)
	}
	if err := persist.Load(path, vs, g); err != nil {
		return persistLoadErr(err)
	}

	ix.idx = index.FromParts(vs, g)
	ix.metrics.IndexSize.Set(float64(ix.idx.Size()))
	return nil
}

func (ix *Index) resolvePath(path string) string {
	if path != "" {
		return path
	}
	return ix.cfg.StoragePath
}

func persistLoadErr(err error) error {
	switch {
	case errors.Is(err, persist.ErrEmptyFile):
		return zvdberr.Wrap(zvdberr.EmptyFile, "Load", err)
	case errors.Is(err, persist.ErrInvalidMagicNumber):
		return zvdberr.Wrap(zvdberr.InvalidMagicNumber, "Load", err)
	case errors.Is(err, persist.ErrUnsupportedVersion):
		return zvdberr.Wrap(zvdberr.UnsupportedVersion, "Load", err)
	case errors.Is(err, persist.ErrTruncated):
		return zvdberr.Wrap(zvdberr.Truncated, "Load", err)
	case errors.Is(err, persist.ErrCorrupted):
		return zvdberr.Wrap(zvdberr.Corrupted, "Load", err)
	case errors.Is(err, persist.ErrIoError):
		return zvdberr.Wrap(zvdberr.IoError, "Load", err)
	default:
		return zvdberr.Wrap(zvdberr.IoError, "Load", err)
	}
}

// trackForQuantization feeds an inserted/updated vector into the
// quantizer's training sample. The quantizer trains exactly once, from
// the first quantizationTrainingWindow vectors seen, matching §4.7's
// "trained from the first N inserted vectors" description; the HNSW
// graph and store keep operating on the original float32 vectors
// regardless, so quantization is purely an additive, optional side
// channel (Compressed/CompressionRatio), not on the search hot path.
func (ix *Index) trackForQuantization(id uint64, vector []float32) {
	if ix.quantizer == nil {
		return
	}
	if !ix.quantizer.IsTrained() {
		if len(ix.quantTraining) < quantizationTrainingWindow {
			cp := append([]float32(nil), vector...)
			ix.quantTraining = append(ix.quantTraining, cp)
		}
		if len(ix.quantTraining) == quantizationTrainingWindow {
			if err := ix.quantizer.Train(ix.quantTraining); err != nil {
				return
			}
			ix.quantTraining = nil
		}
	}
	if ix.quantizer.IsTrained() {
		if compressed, err := ix.quantizer.Compress(vector); err == nil {
			ix.compressed[id] = compressed
		}
	}
}

// Compressed returns the quantized representation stored for id. Only
// vectors inserted or updated once the quantizer has trained (the one that
// completes the training window included) have one; earlier ids, and every
// id when quantization is disabled, report false.
func (ix *Index) Compressed(id uint64) ([]byte, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.compressed == nil {
		return nil, false
	}
	b, ok := ix.compressed[id]
	return b, ok
}

// CompressionRatio reports the quantizer's compression ratio, or 0 if
// quantization is disabled or not yet trained.
func (ix *Index) CompressionRatio() float32 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.quantizer == nil {
		return 0
	}
	return ix.quantizer.CompressionRatio()
}
