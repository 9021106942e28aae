package vecmath

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Float32Func is the distance function signature the HNSW graph uses on
// its hot path: concrete float32 vectors in, float32 distance out.
type Float32Func func(a, b []float32) (float32, error)

// Float32Kernel returns the float32 kernel for metric. Euclidean and Cosine
// reduce to vek32 dot products; Manhattan runs a scalar loop. vek32
// selects AVX2/AVX/SSE at runtime and falls back to a scalar loop itself
// when the running CPU lacks the wider extensions.
func Float32Kernel(metric Metric) (Float32Func, error) {
	switch metric {
	case Euclidean:
		return euclideanF32, nil
	case Manhattan:
		return manhattanF32, nil
	case Cosine:
		return cosineF32, nil
	default:
		return nil, &ErrUnsupportedMetricForType{Metric: metric}
	}
}

// euclideanF32 uses the polarization identity |a-b|^2 = a.a - 2(a.b) + b.b
// so the whole kernel reduces to three SIMD dot products, rather than
// materializing a difference vector.
func euclideanF32(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{len(a), len(b)}
	}
	aa := vek32.Dot(a, a)
	bb := vek32.Dot(b, b)
	ab := vek32.Dot(a, b)
	sumSq := aa - 2*ab + bb
	if sumSq < 0 {
		// Float cancellation can push a near-zero result slightly negative.
		sumSq = 0
	}
	return float32(math.Sqrt(float64(sumSq))), nil
}

// manhattanF32 has no dot-product identity (it needs per-component
// absolute values, not products), so it runs the portable scalar loop.
func manhattanF32(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{len(a), len(b)}
	}
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return sum, nil
}

func cosineF32(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{len(a), len(b)}
	}
	dot := vek32.Dot(a, b)
	normA := float32(math.Sqrt(float64(vek32.Dot(a, a))))
	normB := float32(math.Sqrt(float64(vek32.Dot(b, b))))
	if normA == 0 || normB == 0 {
		if normA == 0 && normB == 0 {
			return 0, nil
		}
		return 1, nil
	}
	cos := dot / (normA * normB)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return float32(math.Acos(float64(cos)) / math.Pi), nil
}
