package flowbatch

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/flowbatch/flowbatch/internal/ports"
)

var configValidator = validator.New()

// RunnerConfig declaratively describes the execution-mode/worker/
// partition/fanout tuning parameters for a Collect* call, loadable from
// YAML. It describes runner tuning parameters only, not a whole evaluation
// graph -- the DAG itself is always built through the typed fluent API
// here, never YAML.
type RunnerConfig struct {
	// Mode selects the executor: "sequential" or "parallel".
	Mode string `yaml:"mode" validate:"required,oneof=sequential parallel"`
	// Workers caps the number of goroutines the parallel executor uses.
	// Zero means the engine default (GOMAXPROCS).
	Workers int `yaml:"workers" validate:"min=0"`
	// Partitions is how many shards the parallel executor splits a source
	// into. Zero means the engine default (2x workers).
	Partitions int `yaml:"partitions" validate:"min=0"`
	// Fanout bounds how many partials the parallel executor's
	// associative-tree merge folds per round. Zero means the engine
	// default (ceil(sqrt(partitions))).
	Fanout int `yaml:"fanout" validate:"min=0"`
}

// LoadRunnerConfig decodes and validates a RunnerConfig from YAML.
func LoadRunnerConfig(data []byte) (RunnerConfig, error) {
	var cfg RunnerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunnerConfig{}, fmt.Errorf("runner config: decode: %w", err)
	}
	if err := configValidator.Struct(cfg); err != nil {
		return RunnerConfig{}, fmt.Errorf("runner config: validate: %w", err)
	}
	return cfg, nil
}

// ToOptions converts c into the ports.Options the executors consume.
// Metrics/Tracer are left nil; wire them in separately with WithMetrics /
// WithTracer if needed, since they aren't YAML-serializable.
func (c RunnerConfig) ToOptions() ports.Options {
	opts := ports.Options{Workers: c.Workers, Partitions: c.Partitions, Fanout: c.Fanout}
	if c.Mode == "parallel" {
		opts.Mode = ports.Parallel
	} else {
		opts.Mode = ports.Sequential
	}
	return opts
}

// WithMetrics returns a copy of opts with its MetricsCollector set.
func WithMetrics(opts ports.Options, m ports.MetricsCollector) ports.Options {
	opts.Metrics = m
	return opts
}

// WithTracer returns a copy of opts with its Tracer set.
func WithTracer(opts ports.Options, t ports.Tracer) ports.Options {
	opts.Tracer = t
	return opts
}
