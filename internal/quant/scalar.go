package quant

import (
	"fmt"
	"math"
	"sync"
)

// ScalarQuantizer maps each dimension's float32 range to a fixed-width
// integer, trained from a sample of inserted vectors. Compress/Decompress
// round-trip through that integer grid; Distance and DistanceToQuery
// operate on the quantized representation directly, without a full
// decompress, so search can stay cheap.
type ScalarQuantizer struct {
	mu sync.RWMutex

	config    *Config
	trained   bool
	dimension int

	minValues []float32
	maxValues []float32
	scales    []float32
	offsets   []float32
	maxLevel  uint32
}

// NewScalarQuantizer creates an unconfigured, untrained quantizer.
func NewScalarQuantizer(config *Config) (*ScalarQuantizer, error) {
	if config == nil {
		return nil, fmt.Errorf("quant: config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ScalarQuantizer{
		config:   config,
		maxLevel: (1 << uint(config.Bits)) - 1,
	}, nil
}

// Train computes a per-dimension min/max range from a sample of vectors
// and derives the scale/offset used by Compress/Decompress. Vectors are
// sampled deterministically (every k-th one) rather than randomly, so a
// given training set always trains the same quantizer.
func (sq *ScalarQuantizer) Train(vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("quant: no training vectors provided")
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()

	sq.dimension = len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != sq.dimension {
			return fmt.Errorf("quant: vector %d has dimension %d, expected %d", i, len(vec), sq.dimension)
		}
	}

	numTraining := int(float64(len(vectors)) * sq.config.TrainRatio)
	if numTraining < 1 {
		numTraining = len(vectors)
	}
	training := sampleVectors(vectors, numTraining)

	sq.minValues = make([]float32, sq.dimension)
	sq.maxValues = make([]float32, sq.dimension)
	sq.scales = make([]float32, sq.dimension)
	sq.offsets = make([]float32, sq.dimension)
	copy(sq.minValues, training[0])
	copy(sq.maxValues, training[0])

	for _, vec := range training {
		for d := 0; d < sq.dimension; d++ {
			if vec[d] < sq.minValues[d] {
				sq.minValues[d] = vec[d]
			}
			if vec[d] > sq.maxValues[d] {
				sq.maxValues[d] = vec[d]
			}
		}
	}

	for d := 0; d < sq.dimension; d++ {
		span := sq.maxValues[d] - sq.minValues[d]
		if span == 0 {
			sq.scales[d] = 1.0
			sq.offsets[d] = sq.minValues[d]
			continue
		}
		sq.scales[d] = span / float32(sq.maxLevel)
		sq.offsets[d] = sq.minValues[d]
	}

	sq.trained = true
	return nil
}

// Compress quantizes vector into a bit-packed byte slice.
func (sq *ScalarQuantizer) Compress(vector []float32) ([]byte, error) {
	sq.mu.RLock()
	defer sq.mu.RUnlock()

	if !sq.trained {
		return nil, fmt.Errorf("quant: not trained")
	}
	if len(vector) != sq.dimension {
		return nil, fmt.Errorf("quant: vector dimension %d does not match trained dimension %d", len(vector), sq.dimension)
	}

	bits := sq.config.Bits
	numBytes := (sq.dimension*bits + 7) / 8
	compressed := make([]byte, numBytes)
	bitOffset := 0

	for d := 0; d < sq.dimension; d++ {
		value := vector[d]
		if value < sq.minValues[d] {
			value = sq.minValues[d]
		} else if value > sq.maxValues[d] {
			value = sq.maxValues[d]
		}
		normalized := (value - sq.offsets[d]) / sq.scales[d]
		quantized := uint32(normalized + 0.5)
		if quantized > sq.maxLevel {
			quantized = sq.maxLevel
		}
		packBits(compressed, bitOffset, bits, quantized)
		bitOffset += bits
	}
	return compressed, nil
}

// Decompress restores an approximate vector from compressed bytes.
func (sq *ScalarQuantizer) Decompress(data []byte) ([]float32, error) {
	sq.mu.RLock()
	defer sq.mu.RUnlock()

	if !sq.trained {
		return nil, fmt.Errorf("quant: not trained")
	}

	bits := sq.config.Bits
	vector := make([]float32, sq.dimension)
	bitOffset := 0
	for d := 0; d < sq.dimension; d++ {
		quantized := unpackBits(data, bitOffset, bits)
		bitOffset += bits
		vector[d] = sq.offsets[d] + float32(quantized)*sq.scales[d]
	}
	return vector, nil
}

// Distance computes the Euclidean distance between two compressed
// vectors directly in quantized space, scaling the per-dimension integer
// difference back to the original units.
func (sq *ScalarQuantizer) Distance(a, b []byte) (float32, error) {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	if !sq.trained {
		return 0, fmt.Errorf("quant: not trained")
	}

	bits := sq.config.Bits
	var sumSq float32
	bitOffset := 0
	for d := 0; d < sq.dimension; d++ {
		qa := unpackBits(a, bitOffset, bits)
		qb := unpackBits(b, bitOffset, bits)
		bitOffset += bits
		diff := float32(int32(qa)-int32(qb)) * sq.scales[d]
		sumSq += diff * diff
	}
	return float32(math.Sqrt(float64(sumSq))), nil
}

// DistanceToQuery computes the Euclidean distance from a compressed
// vector to an uncompressed query, without fully decompressing first.
func (sq *ScalarQuantizer) DistanceToQuery(compressed []byte, query []float32) (float32, error) {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	if !sq.trained {
		return 0, fmt.Errorf("quant: not trained")
	}
	if len(query) != sq.dimension {
		return 0, fmt.Errorf("quant: query dimension %d does not match trained dimension %d", len(query), sq.dimension)
	}

	bits := sq.config.Bits
	var sumSq float32
	bitOffset := 0
	for d := 0; d < sq.dimension; d++ {
		quantized := unpackBits(compressed, bitOffset, bits)
		bitOffset += bits
		dequantized := sq.offsets[d] + float32(quantized)*sq.scales[d]
		diff := query[d] - dequantized
		sumSq += diff * diff
	}
	return float32(math.Sqrt(float64(sumSq))), nil
}

// CompressionRatio reports the ratio of original (32 bits/dimension) to
// compressed size.
func (sq *ScalarQuantizer) CompressionRatio() float32 {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	if !sq.trained {
		return 0
	}
	return 32.0 / float32(sq.config.Bits)
}

// IsTrained reports whether Train has run successfully.
func (sq *ScalarQuantizer) IsTrained() bool {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	return sq.trained
}

func sampleVectors(vectors [][]float32, n int) [][]float32 {
	if n >= len(vectors) {
		return vectors
	}
	step := len(vectors) / n
	if step < 1 {
		step = 1
	}
	sampled := make([][]float32, 0, n)
	for i := 0; i < len(vectors) && len(sampled) < n; i += step {
		sampled = append(sampled, vectors[i])
	}
	return sampled
}

func packBits(data []byte, bitOffset, numBits int, value uint32) {
	for i := 0; i < numBits; i++ {
		byteIdx := (bitOffset + i) / 8
		bitIdx := (bitOffset + i) % 8
		if byteIdx >= len(data) {
			return
		}
		if (value>>i)&1 == 1 {
			data[byteIdx] |= 1 << bitIdx
		}
	}
}

func unpackBits(data []byte, bitOffset, numBits int) uint32 {
	value := uint32(0)
	for i := 0; i < numBits; i++ {
		byteIdx := (bitOffset + i) / 8
		bitIdx := (bitOffset + i) % 8
		if byteIdx >= len(data) {
			break
		}
		if (data[byteIdx]>>bitIdx)&1 == 1 {
			value |= 1 << i
		}
	}
	return value
}
