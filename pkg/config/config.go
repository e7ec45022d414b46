// Package config holds the configuration of a points-to analysis run.
package config

import (
	"errors"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Variant selects the rule set of the analysis.
type Variant string

const (
	// Unoptimized maintains the value-flow, memory-alias and value-alias relations.
	Unoptimized Variant = "unoptimized"
	// Optimized eliminates the value-alias relation through a value-flow-dereference relation.
	Optimized Variant = "optimized"
)

// OptimizedToken selects the optimized variant when it appears among the positional arguments.
const OptimizedToken = "optimized"

// Format is the output format of the report.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config is the configuration of a run.
type Config struct {
	// InputPath is the path of the edge list.
	InputPath string `json:"input"`
	// Variant is the rule set to run.
	Variant Variant `json:"variant"`
	// Workers is the number of workers sharing the computation.
	Workers int `json:"workers"`
	// Format is the report format.
	Format Format `json:"format"`
	// MetricsFile, when set, receives the run metrics in the Prometheus text format.
	MetricsFile string `json:"metricsFile,omitempty"`
	// Explain prints the execution plan of the rule set before running it.
	Explain bool `json:"explain,omitempty"`
	// Graph, when set to "dot" or "mermaid", prints the dataflow graph of the rule set before
	// running it.
	Graph string `json:"graph,omitempty"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Variant: Unoptimized,
		Workers: 1,
		Format:  FormatText,
	}
}

// Load reads a YAML configuration file on top of the defaults. Unknown fields are rejected.
func Load(path string) (Config, error) {
	c := Defaults()

	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return c, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, path, err.Error())
	}

	return c, nil
}

// ApplyArgs applies the positional arguments: the input path and the optional OptimizedToken, in
// any order.
func (c *Config) ApplyArgs(args []string) error {
	var paths []string
	for _, arg := range args {
		if arg == OptimizedToken {
			c.Variant = Optimized
			continue
		}
		paths = append(paths, arg)
	}

	switch len(paths) {
	case 0:
	case 1:
		c.InputPath = paths[0]
	default:
		return fmt.Errorf("%w: expected a single input path, got %q", ErrInvalidConfig, paths)
	}

	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("%w: missing input path", ErrInvalidConfig)
	}

	switch c.Variant {
	case Unoptimized, Optimized:
	default:
		return fmt.Errorf("%w: unknown variant %q", ErrInvalidConfig, c.Variant)
	}

	if c.Workers < 1 {
		return fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidConfig, c.Workers)
	}

	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}

	switch c.Graph {
	case "", "dot", "mermaid":
	default:
		return fmt.Errorf("%w: unknown graph format %q", ErrInvalidConfig, c.Graph)
	}

	return nil
}

// String returns a short description of the configuration.
func (c Config) String() string {
	return fmt.Sprintf("input=%s variant=%s workers=%d format=%s", c.InputPath, c.Variant, c.Workers,
		c.Format)
}
