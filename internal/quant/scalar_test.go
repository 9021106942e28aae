package quant

import "testing"

func trainedQuantizer(t *testing.T) (*ScalarQuantizer, [][]float32) {
	t.Helper()
	sq, err := NewScalarQuantizer(&Config{Bits: 8, TrainRatio: 1.0})
	if err != nil {
		t.Fatalf("NewScalarQuantizer: %v", err)
	}
	vectors := make([][]float32, 0, 20)
	for i := 0; i < 20; i++ {
		vectors = append(vectors, []float32{float32(i), float32(-i), float32(i) * 0.5})
	}
	if err := sq.Train(vectors); err != nil {
		t.Fatalf("Train: %v", err)
	}
	return sq, vectors
}

func TestCompressDecompressApproximatesOriginal(t *testing.T) {
	sq, vectors := trainedQuantizer(t)
	for _, v := range vectors {
		compressed, err := sq.Compress(v)
		if err != nil {
			t.Fatalf("Compress: %v", err)
		}
		restored, err := sq.Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress: %v", err)
		}
		for d := range v {
			diff := v[d] - restored[d]
			if diff < 0 {
				diff = -diff
			}
			if diff > 1.0 {
				t.Errorf("dimension %d: original %f decompressed to %f, diff %f too large", d, v[d], restored[d], diff)
			}
		}
	}
}

func TestDistanceToQueryMatchesDecompressedDistance(t *testing.T) {
	sq, vectors := trainedQuantizer(t)
	query := []float32{3, -3, 1.5}

	compressed, err := sq.Compress(vectors[5])
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := sq.DistanceToQuery(compressed, query)
	if err != nil {
		t.Fatalf("DistanceToQuery: %v", err)
	}

	decompressed, err := sq.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	var want float64
	for d := range query {
		diff := float64(query[d] - decompressed[d])
		want += diff * diff
	}
	wantF := float32(want)
	if got*got < wantF-0.01 || got*got > wantF+0.01 {
		t.Errorf("DistanceToQuery squared %f diverges from manual squared distance %f", got*got, wantF)
	}
}

func TestUntrainedQuantizerRejectsOperations(t *testing.T) {
	sq, err := NewScalarQuantizer(&Config{Bits: 8, TrainRatio: 1.0})
	if err != nil {
		t.Fatalf("NewScalarQuantizer: %v", err)
	}
	if _, err := sq.Compress([]float32{1, 2, 3}); err == nil {
		t.Fatal("expected error compressing with untrained quantizer")
	}
	if sq.IsTrained() {
		t.Fatal("expected IsTrained to be false before Train")
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	if _, err := NewScalarQuantizer(&Config{Bits: 0, TrainRatio: 0.1}); err == nil {
		t.Fatal("expected error for zero bits")
	}
	if _, err := NewScalarQuantizer(&Config{Bits: 8, TrainRatio: 1.5}); err == nil {
		t.Fatal("expected error for out-of-range train ratio")
	}
}
