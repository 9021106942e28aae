package zvdb

import (
	"path/filepath"
	"testing"

	"github.com/zvdb-io/zvdb/internal/vecmath"
)

func TestOpenRejectsZeroDimension(t *testing.T) {
	if _, err := Open(Config{Dimension: 0, DistanceMetric: vecmath.Euclidean}); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}

func TestOpenAppliesDefaults(t *testing.T) {
	ix, err := Open(Config{Dimension: 3, DistanceMetric: vecmath.Euclidean})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ix.cfg.M != defaultM || ix.cfg.EfConstruction != defaultEfConstruction || ix.cfg.EfSearch != defaultEfSearch {
		t.Fatalf("expected default tunables, got %+v", ix.cfg)
	}
}

func TestInsertAndSearchBasic3D(t *testing.T) {
	ix, err := Open(Config{Dimension: 3, DistanceMetric: vecmath.Euclidean}, WithRandomSeed(1))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	vectors := [][]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {5, 5, 5}}
	var ids []uint64
	for _, v := range vectors {
		id, err := ix.Insert(v, nil)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, id)
	}

	results, err := ix.SearchKNN([]float32{0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != ids[0] {
		t.Errorf("expected closest result to be the origin vector (id %d), got %d", ids[0], results[0].ID)
	}
}

func TestSearchEmptyIndexReturnsNoResults(t *testing.T) {
	ix, err := Open(Config{Dimension: 3, DistanceMetric: vecmath.Euclidean})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	results, err := ix.SearchKNN([]float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results from an empty index, got %d", len(results))
	}
}

func TestSearchKGreaterThanCountTruncates(t *testing.T) {
	ix, err := Open(Config{Dimension: 2, DistanceMetric: vecmath.Euclidean})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := ix.Insert([]float32{1, 1}, nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	results, err := ix.SearchKNN([]float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(results))
	}
}

func TestDuplicateVectorsGetDistinctIDs(t *testing.T) {
	ix, err := Open(Config{Dimension: 2, DistanceMetric: vecmath.Euclidean})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id1, err := ix.Insert([]float32{3, 4}, nil)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id2, err := ix.Insert([]float32{3, 4}, nil)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id1 == id2 {
		t.Fatal("expected distinct ids for duplicate vectors")
	}
	if ix.Size() != 2 {
		t.Fatalf("expected size 2, got %d", ix.Size())
	}
}

func TestDeleteFirstInsertedKeepsIndexSearchable(t *testing.T) {
	ix, err := Open(Config{Dimension: 4, DistanceMetric: vecmath.Euclidean}, WithRandomSeed(7), WithM(4))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var ids []uint64
	for i := 0; i < 50; i++ {
		v := []float32{float32(i), float32(i * 2), float32(i * 3), float32(i * 4)}
		id, err := ix.Insert(v, nil)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, id)
	}
	if err := ix.Delete(ids[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	results, err := ix.SearchKNN([]float32{1, 2, 3, 4}, 5)
	if err != nil {
		t.Fatalf("SearchKNN after delete: %v", err)
	}
	for _, r := range results {
		if r.ID == ids[0] {
			t.Fatal("deleted id reappeared in search results")
		}
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
}

func TestDimensionMismatchRejected(t *testing.T) {
	ix, err := Open(Config{Dimension: 3, DistanceMetric: vecmath.Euclidean})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := ix.Insert([]float32{1, 2}, nil); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if _, err := ix.SearchKNN([]float32{1, 2}, 1); err == nil {
		t.Fatal("expected dimension mismatch error on search")
	}
}

func TestSaveLoadDeterministicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "determ.zvdb")

	ix, err := Open(Config{Dimension: 16, DistanceMetric: vecmath.Cosine}, WithRandomSeed(99), WithM(8), WithEfConstruction(32), WithEfSearch(32))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 200; i++ {
		v := make([]float32, 16)
		for d := range v {
			v[d] = float32((i+1)*(d+1)) * 0.01
		}
		if _, err := ix.Insert(v, nil); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := ix.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ix2, err := Open(Config{Dimension: 16, DistanceMetric: vecmath.Cosine}, WithRandomSeed(99), WithM(8), WithEfConstruction(32), WithEfSearch(32))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ix2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ix2.Size() != ix.Size() {
		t.Fatalf("size mismatch after load: got %d, want %d", ix2.Size(), ix.Size())
	}

	query := make([]float32, 16)
	for d := range query {
		query[d] = float32(d) * 0.02
	}
	before, err := ix.SearchKNN(query, 10)
	if err != nil {
		t.Fatalf("SearchKNN before: %v", err)
	}
	after, err := ix2.SearchKNN(query, 10)
	if err != nil {
		t.Fatalf("SearchKNN after: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("result count mismatch: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("result %d id mismatch after reload: %d vs %d", i, before[i].ID, after[i].ID)
		}
	}
}

func TestSaveUsesConfiguredStoragePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.zvdb")
	ix, err := Open(Config{Dimension: 3, DistanceMetric: vecmath.Euclidean}, WithStoragePath(path))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := ix.Insert([]float32{1, 2, 3}, nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := ix.Save(""); err != nil {
		t.Fatalf("Save with empty path: %v", err)
	}
}

func TestQuantizationTracksCompressionAfterTraining(t *testing.T) {
	ix, err := Open(Config{Dimension: 4, DistanceMetric: vecmath.Euclidean}, WithQuantization(8, 1.0))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var lastID uint64
	for i := 0; i < quantizationTrainingWindow; i++ {
		v := []float32{float32(i), float32(i) * 2, float32(i) * 3, float32(i) * 4}
		id, err := ix.Insert(v, nil)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		lastID = id
	}
	if ix.CompressionRatio() == 0 {
		t.Fatal("expected compression ratio to be nonzero once the quantizer has trained")
	}
	if _, ok := ix.Compressed(lastID); !ok {
		t.Fatal("expected a compressed representation for the last inserted id")
	}
}

func TestCloseRejectsFurtherOperations(t *testing.T) {
	ix, err := Open(Config{Dimension: 2, DistanceMetric: vecmath.Euclidean})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ix.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := ix.Insert([]float32{1, 2}, nil); err == nil {
		t.Fatal("expected error inserting into a closed index")
	}
}
