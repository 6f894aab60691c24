// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/powerdeck/powerdeck/internal/device"
)

// DeviceCollector reports power caps and backlight brightness. Every Collect
// probes the devices again; nothing is cached between collections.
type DeviceCollector struct {
	logger    *slog.Logger
	power     device.PowerCapController
	backlight device.BacklightController

	powerCap      *prom.Desc
	brightness    *prom.Desc
	maxBrightness *prom.Desc
	probeSuccess  *prom.Desc
}

// NewDeviceCollector creates a collector for the given controllers. A nil
// controller is skipped, which is how disabled devices are left out.
func NewDeviceCollector(pc device.PowerCapController, bl device.BacklightController, logger *slog.Logger) *DeviceCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceCollector{
		logger:    logger.With("collector", "device"),
		power:     pc,
		backlight: bl,

		powerCap: prom.NewDesc(
			prom.BuildFQName(powerdeckNS, "power", "cap_microwatts"),
			"Power cap of an APU rail in microwatts",
			[]string{"rail", "path"}, nil,
		),
		brightness: prom.NewDesc(
			prom.BuildFQName(powerdeckNS, "backlight", "brightness"),
			"Current backlight brightness in device units",
			[]string{"device"}, nil,
		),
		maxBrightness: prom.NewDesc(
			prom.BuildFQName(powerdeckNS, "backlight", "max_brightness"),
			"Maximum backlight brightness accepted by the device",
			[]string{"device"}, nil,
		),
		probeSuccess: prom.NewDesc(
			prom.BuildFQName(powerdeckNS, "", "probe_success"),
			"Whether reading the device succeeded (1) or failed (0)",
			[]string{"device"}, nil,
		),
	}
}

func (c *DeviceCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.powerCap
	ch <- c.brightness
	ch <- c.maxBrightness
	ch <- c.probeSuccess
}

func (c *DeviceCollector) Collect(ch chan<- prom.Metric) {
	if c.power != nil {
		ch <- c.success("power", c.collectPower(ch))
	}
	if c.backlight != nil {
		ch <- c.success("backlight", c.collectBacklight(ch))
	}
}

func (c *DeviceCollector) collectPower(ch chan<- prom.Metric) bool {
	rails, err := c.power.Rails()
	if err != nil {
		c.logger.Warn("Failed to probe power rails", "error", err)
		return false
	}

	ok := true
	for _, r := range rails {
		p, err := c.power.Cap(r.Rail)
		if err != nil {
			c.logger.Warn("Failed to read power cap", "rail", r.Rail, "error", err)
			ok = false
			continue
		}
		ch <- prom.MustNewConstMetric(c.powerCap, prom.GaugeValue, float64(p.MicroWatts()), r.Rail.String(), r.Path)
	}
	return ok
}

func (c *DeviceCollector) collectBacklight(ch chan<- prom.Metric) bool {
	h, err := c.backlight.Probe()
	if err != nil {
		c.logger.Warn("Failed to probe backlight", "error", err)
		return false
	}
	ch <- prom.MustNewConstMetric(c.maxBrightness, prom.GaugeValue, float64(h.MaxBrightness), h.Name)

	v, err := c.backlight.Brightness()
	if err != nil {
		c.logger.Warn("Failed to read brightness", "device", h.Name, "error", err)
		return false
	}
	ch <- prom.MustNewConstMetric(c.brightness, prom.GaugeValue, float64(v), h.Name)
	return true
}

func (c *DeviceCollector) success(dev string, ok bool) prom.Metric {
	v := 0.0
	if ok {
		v = 1
	}
	return prom.MustNewConstMetric(c.probeSuccess, prom.GaugeValue, v, dev)
}
