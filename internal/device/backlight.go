// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
)

const (
	// DefaultBacklightDir is the backlight class directory, relative to sysfs
	DefaultBacklightDir = "class/backlight"

	// DefaultBacklightPattern matches the amdgpu panel backlight
	DefaultBacklightPattern = `^amdgpu_bl[0-9]+$`

	brightnessFile    = "brightness"
	maxBrightnessFile = "max_brightness"
)

var defaultBacklightRegexp = regexp.MustCompile(DefaultBacklightPattern)

// BacklightHandle is a backlight device as found by discovery
type BacklightHandle struct {
	Name          string
	Path          string // brightness control file
	MaxBrightness uint64
}

// BacklightController reads and writes the display backlight
type BacklightController interface {
	Probe() (*BacklightHandle, error)
	Brightness() (uint64, error)
	SetBrightness(value uint64) error
}

// Backlight implements BacklightController using the sysfs backlight class
type Backlight struct {
	classDir string
	pattern  *regexp.Regexp
	logger   *slog.Logger
}

var _ BacklightController = (*Backlight)(nil)

// BacklightOptionFn is a function that configures Backlight options
type BacklightOptionFn func(*Backlight)

// WithBacklightLogger sets the logger for Backlight
func WithBacklightLogger(logger *slog.Logger) BacklightOptionFn {
	return func(b *Backlight) {
		b.logger = logger.With("service", "backlight")
	}
}

// WithBacklightDir overrides the backlight class directory, relative to sysfs
func WithBacklightDir(dir string) BacklightOptionFn {
	return func(b *Backlight) {
		b.classDir = dir
	}
}

// WithBacklightPattern sets the pattern device names must match
func WithBacklightPattern(re *regexp.Regexp) BacklightOptionFn {
	return func(b *Backlight) {
		b.pattern = re
	}
}

// NewBacklight creates a backlight accessor for the given sysfs mount point
func NewBacklight(sysfsPath string, opts ...BacklightOptionFn) (*Backlight, error) {
	if err := checkSysFS(sysfsPath); err != nil {
		return nil, err
	}

	ret := &Backlight{
		classDir: DefaultBacklightDir,
		pattern:  defaultBacklightRegexp,
		logger:   slog.Default().With("service", "backlight"),
	}

	for _, opt := range opts {
		opt(ret)
	}

	ret.classDir = filepath.Join(sysfsPath, ret.classDir)
	return ret, nil
}

// Probe finds the first backlight device, in name order, whose name matches
// the pattern and reads its maximum brightness
func (b *Backlight) Probe() (*BacklightHandle, error) {
	entries, err := listDir(b.classDir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if !b.pattern.MatchString(name) {
			continue
		}

		devDir := filepath.Join(b.classDir, name)
		maxBrightness, err := readUint(filepath.Join(devDir, maxBrightnessFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read maximum brightness of %s: %w", name, err)
		}

		path := filepath.Join(devDir, brightnessFile)
		if err := checkControlFile(path); err != nil {
			return nil, err
		}

		b.logger.Debug("Probed backlight", "device", name, "path", path, "max", maxBrightness)
		return &BacklightHandle{
			Name:          name,
			Path:          path,
			MaxBrightness: maxBrightness,
		}, nil
	}

	return nil, fmt.Errorf("backlight device %w: no entry in %s matches %q", ErrNotFound, b.classDir, b.pattern)
}

// Brightness reads the current brightness
func (b *Backlight) Brightness() (uint64, error) {
	h, err := b.Probe()
	if err != nil {
		return 0, err
	}
	return readUint(h.Path)
}

// MaxBrightness reads the maximum brightness the device accepts
func (b *Backlight) MaxBrightness() (uint64, error) {
	h, err := b.Probe()
	if err != nil {
		return 0, err
	}
	return h.MaxBrightness, nil
}

// SetBrightness writes value after checking it against the maximum brightness
func (b *Backlight) SetBrightness(value uint64) error {
	h, err := b.Probe()
	if err != nil {
		return err
	}
	return b.set(h, value)
}

// SetBrightnessPercent maps percent (0 to 100) onto the device range and
// writes the result
func (b *Backlight) SetBrightnessPercent(percent float64) error {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return fmt.Errorf("brightness %.1f%% %w: must be between 0 and 100", percent, ErrOutOfRange)
	}

	h, err := b.Probe()
	if err != nil {
		return err
	}

	value := uint64(math.Round(percent / 100 * float64(h.MaxBrightness)))
	return b.set(h, value)
}

func (b *Backlight) set(h *BacklightHandle, value uint64) error {
	if value > h.MaxBrightness {
		return fmt.Errorf("brightness %d %w: must be between 0 and %d", value, ErrOutOfRange, h.MaxBrightness)
	}

	if err := writeUint(h.Path, value); err != nil {
		return err
	}

	b.logger.Info("Brightness updated", "device", h.Name, "brightness", value, "max", h.MaxBrightness)
	return nil
}
