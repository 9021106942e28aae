package zvdb

import (
	"fmt"

	"github.com/zvdb-io/zvdb/internal/vecmath"
	"github.com/zvdb-io/zvdb/internal/zvdberr"
)

// Config holds the required and optional settings used by Open. Dimension
// and DistanceMetric are required; everything else has a sensible default
// and can also be set via an Option passed to Open.
type Config struct {
	Dimension      int
	DistanceMetric vecmath.Metric
	M              int
	EfConstruction int
	EfSearch       int
	StoragePath    string
	RandomSeed     int64
	Quantization   *QuantConfig
}

// QuantConfig enables optional scalar quantization of stored vectors.
type QuantConfig struct {
	Bits       int
	TrainRatio float64
}

const (
	defaultM              = 16
	defaultEfConstruction = 200
	defaultEfSearch       = 50
)

func defaultConfig(dimension int, metric vecmath.Metric) *Config {
	return &Config{
		Dimension:      dimension,
		DistanceMetric: metric,
		M:              defaultM,
		EfConstruction: defaultEfConstruction,
		EfSearch:       defaultEfSearch,
	}
}

func (c *Config) validate() error {
	if c.Dimension <= 0 {
		return zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", fmt.Errorf("dimension must be positive, got %d", c.Dimension))
	}
	if c.M <= 1 {
		return zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", fmt.Errorf("index.M must be at least 2, got %d", c.M))
	}
	if c.EfConstruction <= 0 {
		return zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", fmt.Errorf("index.ef_construction must be positive, got %d", c.EfConstruction))
	}
	if c.EfSearch <= 0 {
		return zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", fmt.Errorf("index.ef_search must be positive, got %d", c.EfSearch))
	}
	if c.Quantization != nil {
		if c.Quantization.Bits <= 0 || c.Quantization.Bits > 32 {
			return zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", fmt.Errorf("quantization bits must be in (0, 32], got %d", c.Quantization.Bits))
		}
		if c.Quantization.TrainRatio <= 0 || c.Quantization.TrainRatio > 1 {
			return zvdberr.Wrap(zvdberr.InvalidConfiguration, "Open", fmt.Errorf("quantization train ratio must be in (0, 1], got %f", c.Quantization.TrainRatio))
		}
	}
	return nil
}

// Option customizes a Config passed to Open, in the style of the
// functional options the teacher's database/collection layer uses.
type Option func(*Config) error

// WithM sets the target neighbor degree per layer.
func WithM(m int) Option {
	return func(c *Config) error {
		if m <= 1 {
			return fmt.Errorf("index.M must be at least 2, got %d", m)
		}
		c.M = m
		return nil
	}
}

// WithEfConstruction sets the candidate list size used while inserting.
func WithEfConstruction(ef int) Option {
	return func(c *Config) error {
		if ef <= 0 {
			return fmt.Errorf("index.ef_construction must be positive, got %d", ef)
		}
		c.EfConstruction = ef
		return nil
	}
}

// WithEfSearch sets the candidate list size used while querying.
func WithEfSearch(ef int) Option {
	return func(c *Config) error {
		if ef <= 0 {
			return fmt.Errorf("index.ef_search must be positive, got %d", ef)
		}
		c.EfSearch = ef
		return nil
	}
}

// WithStoragePath sets the default path Save/Load use when called with
// an empty path.
func WithStoragePath(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("storage path cannot be empty")
		}
		c.StoragePath = path
		return nil
	}
}

// WithRandomSeed makes level draws during insertion deterministic.
func WithRandomSeed(seed int64) Option {
	return func(c *Config) error {
		c.RandomSeed = seed
		return nil
	}
}

// WithQuantization enables scalar quantization of stored vectors. The
// quantizer trains once, after the first quantizationTrainingWindow (256)
// inserted or updated vectors have been buffered; trainRatio is the
// fraction of that buffer it samples for its per-dimension ranges.
func WithQuantization(bits int, trainRatio float64) Option {
	return func(c *Config) error {
		if bits <= 0 || bits > 32 {
			return fmt.Errorf("quantization bits must be in (0, 32], got %d", bits)
		}
		if trainRatio <= 0 || trainRatio > 1 {
			return fmt.Errorf("quantization train ratio must be in (0, 1], got %f", trainRatio)
		}
		c.Quantization = &QuantConfig{Bits: bits, TrainRatio: trainRatio}
		return nil
	}
}
