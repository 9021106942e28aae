package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zvdb-io/zvdb/internal/index/hnsw"
	"github.com/zvdb-io/zvdb/internal/store"
	"github.com/zvdb-io/zvdb/internal/vecmath"
)

func buildGraph(t *testing.T, dim, n int) (*store.Store, *hnsw.Graph) {
	t.Helper()
	vs := store.New(dim)
	g, err := hnsw.New(hnsw.Config{
		Dimension:      dim,
		M:              8,
		EfConstruction: 64,
		EfSearch:       32,
		Metric:         vecmath.Euclidean,
		RandomSeed:     42,
	}, vs)
	if err != nil {
		t.Fatalf("hnsw.New: %v", err)
	}
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = float32(i*dim + d)
		}
		if _, err := g.Insert(vec, []byte("meta")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return vs, g
}

func TestSaveLoadRoundTrip(t *testing.T) {
	vs, g := buildGraph(t, 6, 40)
	dir := t.TempDir()
	path := filepath.Join(dir, "index.zvdb")

	if err := Save(path, vs, g); err != nil {
		t.Fatalf("Save: %v", err)
	}

	vs2 := store.New(6)
	g2, err := hnsw.New(hnsw.Config{
		Dimension:      6,
		M:              8,
		EfConstruction: 64,
		EfSearch:       32,
		Metric:         vecmath.Euclidean,
		RandomSeed:     42,
	}, vs2)
	if err != nil {
		t.Fatalf("hnsw.New: %v", err)
	}
	if err := Load(path, vs2, g2); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if g2.Size() != g.Size() {
		t.Fatalf("size mismatch: got %d, want %d", g2.Size(), g.Size())
	}

	query := make([]float32, 6)
	for d := range query {
		query[d] = float32(d)
	}
	before, err := g.SearchKNN(query, 5)
	if err != nil {
		t.Fatalf("SearchKNN before: %v", err)
	}
	after, err := g2.SearchKNN(query, 5)
	if err != nil {
		t.Fatalf("SearchKNN after: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("result count mismatch: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("result %d id mismatch: %d vs %d", i, before[i].ID, after[i].ID)
		}
	}
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.zvdb")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	vs := store.New(4)
	g, _ := hnsw.New(hnsw.Config{Dimension: 4, M: 8, EfConstruction: 16, EfSearch: 16, Metric: vecmath.Euclidean}, vs)
	if err := Load(path, vs, g); err != ErrEmptyFile {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.zvdb")
	if err := os.WriteFile(path, []byte("NOTZ not a real zvdb file at all"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	vs := store.New(4)
	g, _ := hnsw.New(hnsw.Config{Dimension: 4, M: 8, EfConstruction: 16, EfSearch: 16, Metric: vecmath.Euclidean}, vs)
	if err := Load(path, vs, g); err == nil {
		t.Fatal("expected an error for bad magic")
	}
}

func TestLoadRejectsDimensionMismatch(t *testing.T) {
	vs, g := buildGraph(t, 4, 5)
	dir := t.TempDir()
	path := filepath.Join(dir, "index.zvdb")
	if err := Save(path, vs, g); err != nil {
		t.Fatalf("Save: %v", err)
	}

	vs2 := store.New(8)
	g2, _ := hnsw.New(hnsw.Config{Dimension: 8, M: 8, EfConstruction: 16, EfSearch: 16, Metric: vecmath.Euclidean}, vs2)
	if err := Load(path, vs2, g2); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
