// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package prometheus

import (
	"fmt"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/powerdeck/powerdeck/internal/device"
	collector "github.com/powerdeck/powerdeck/internal/exporter/prometheus/collector"
	"github.com/powerdeck/powerdeck/internal/service"
)

type Opts struct {
	logger     *slog.Logger
	collectors map[string]prom.Collector
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:     slog.Default(),
		collectors: map[string]prom.Collector{},
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Exporter
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithCollectors replaces the collectors registered by Init
func WithCollectors(c map[string]prom.Collector) OptionFn {
	return func(o *Opts) {
		o.collectors = c
	}
}

// Exporter writes device readings in the Prometheus text format to a file
// picked up by node_exporter's textfile collector. It runs once per
// invocation; there is no HTTP endpoint and no background loop.
type Exporter struct {
	logger     *slog.Logger
	registry   *prom.Registry
	collectors map[string]prom.Collector
}

var _ service.Initializer = (*Exporter)(nil)

// NewExporter creates a new Exporter instance
func NewExporter(applyOpts ...OptionFn) *Exporter {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Exporter{
		logger:     opts.logger.With("service", "prometheus"),
		registry:   prom.NewRegistry(),
		collectors: opts.collectors,
	}
}

// CreateCollectors returns the standard collectors for the given
// controllers; pass nil for a disabled device
func CreateCollectors(pc device.PowerCapController, bl device.BacklightController, logger *slog.Logger) map[string]prom.Collector {
	return map[string]prom.Collector{
		"build_info": collector.NewBuildInfoCollector(),
		"device":     collector.NewDeviceCollector(pc, bl, logger),
	}
}

func (e *Exporter) Init() error {
	for name, c := range e.collectors {
		e.logger.Debug("Enabling collector", "collector", name)
		if err := e.registry.Register(c); err != nil {
			return fmt.Errorf("failed to register collector %s: %w", name, err)
		}
	}
	return nil
}

// WriteTextfile gathers all collectors and atomically replaces path with the result
func (e *Exporter) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	e.logger.Info("Metrics written", "path", path)
	return nil
}

// Name implements service.Name
func (e *Exporter) Name() string {
	return "prometheus"
}
