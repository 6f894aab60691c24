// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"log/slog"

	"github.com/powerdeck/powerdeck/config"
	"github.com/powerdeck/powerdeck/internal/device"
	"k8s.io/utils/ptr"
)

var (
	errPowerDisabled     = errors.New("power cap control is disabled")
	errBacklightDisabled = errors.New("backlight control is disabled")
)

// devices holds the accessors enabled by the configuration; disabled ones are nil
type devices struct {
	power     *device.PowerCaps
	backlight *device.Backlight
}

func newDevices(cfg *config.Config, logger *slog.Logger) (*devices, error) {
	devs := &devices{}

	if ptr.Deref(cfg.Power.Enabled, false) {
		pc, err := device.NewPowerCaps(cfg.Host.SysFS,
			device.WithPowerCapsLogger(logger),
			device.WithHwmonDir(cfg.Power.HwmonDir),
			device.WithCapFiles(cfg.Power.SustainedFile, cfg.Power.BoostFile),
		)
		if err != nil {
			return nil, err
		}
		devs.power = pc
	}

	if ptr.Deref(cfg.Backlight.Enabled, false) {
		pattern, err := cfg.BacklightRegexp()
		if err != nil {
			return nil, err
		}
		bl, err := device.NewBacklight(cfg.Host.SysFS,
			device.WithBacklightLogger(logger),
			device.WithBacklightDir(cfg.Backlight.ClassDir),
			device.WithBacklightPattern(pattern),
		)
		if err != nil {
			return nil, err
		}
		devs.backlight = bl
	}

	return devs, nil
}

func (d *devices) powerCaps() (*device.PowerCaps, error) {
	if d.power == nil {
		return nil, errPowerDisabled
	}
	return d.power, nil
}

func (d *devices) backlightControl() (*device.Backlight, error) {
	if d.backlight == nil {
		return nil, errBacklightDisabled
	}
	return d.backlight, nil
}

// controllers returns the enabled accessors as interfaces. A disabled
// accessor is a nil interface, not an interface holding a nil pointer.
func (d *devices) controllers() (device.PowerCapController, device.BacklightController) {
	var pc device.PowerCapController
	var bl device.BacklightController
	if d.power != nil {
		pc = d.power
	}
	if d.backlight != nil {
		bl = d.backlight
	}
	return pc, bl
}
