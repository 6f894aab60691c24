// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// see https://lists.freedesktop.org/archives/amd-gfx/2021-February/059075.html
const (
	// DefaultHwmonDir is the hwmon parent of the APU's graphics function,
	// relative to the sysfs mount point
	DefaultHwmonDir = "devices/pci0000:00/0000:00:08.1/0000:04:00.0/hwmon"

	DefaultSustainedFile = "power1_cap"
	DefaultBoostFile     = "power2_cap"
)

// Rail identifies one of the two power budgets of the APU
type Rail int

const (
	// Sustained is the long-duration budget, "slow" (PPT) in vendor terms
	Sustained Rail = iota
	// Boost is the short-duration budget, "fast" in vendor terms
	Boost
)

// AllRails lists the rails in display order
var AllRails = []Rail{Sustained, Boost}

func (r Rail) String() string {
	switch r {
	case Sustained:
		return "sustained"
	case Boost:
		return "boost"
	default:
		return fmt.Sprintf("rail(%d)", int(r))
	}
}

// ParseRail accepts "sustained" / "boost" and the vendor aliases "slow" / "fast"
func ParseRail(s string) (Rail, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sustained", "slow":
		return Sustained, nil
	case "boost", "fast":
		return Boost, nil
	default:
		return 0, fmt.Errorf("unknown power rail %q: expected sustained (slow) or boost (fast)", s)
	}
}

// RailHandle is the power cap control file of a rail as found by discovery.
// It is only valid for the operation that probed it.
type RailHandle struct {
	Rail Rail
	Path string
}

// PowerCapController reads and writes APU power caps
type PowerCapController interface {
	Rails() ([]RailHandle, error)
	Cap(rail Rail) (Power, error)
	SetCap(rail Rail, p Power) error
}

// PowerCaps implements PowerCapController on top of the hwmon sysfs node of
// the APU. Nothing is cached: every call probes the hwmon directory again.
type PowerCaps struct {
	hwmonDir string
	files    map[Rail]string
	logger   *slog.Logger
}

var _ PowerCapController = (*PowerCaps)(nil)

// PowerCapsOptionFn is a function that configures PowerCaps options
type PowerCapsOptionFn func(*PowerCaps)

// WithPowerCapsLogger sets the logger for PowerCaps
func WithPowerCapsLogger(logger *slog.Logger) PowerCapsOptionFn {
	return func(pc *PowerCaps) {
		pc.logger = logger.With("service", "power-caps")
	}
}

// WithHwmonDir overrides the hwmon parent directory, relative to sysfs
func WithHwmonDir(dir string) PowerCapsOptionFn {
	return func(pc *PowerCaps) {
		pc.hwmonDir = dir
	}
}

// WithCapFiles overrides the basenames of the sustained and boost control files
func WithCapFiles(sustained, boost string) PowerCapsOptionFn {
	return func(pc *PowerCaps) {
		pc.files[Sustained] = sustained
		pc.files[Boost] = boost
	}
}

// NewPowerCaps creates a power cap accessor for the given sysfs mount point
func NewPowerCaps(sysfsPath string, opts ...PowerCapsOptionFn) (*PowerCaps, error) {
	if err := checkSysFS(sysfsPath); err != nil {
		return nil, err
	}

	ret := &PowerCaps{
		hwmonDir: DefaultHwmonDir,
		files: map[Rail]string{
			Sustained: DefaultSustainedFile,
			Boost:     DefaultBoostFile,
		},
		logger: slog.Default().With("service", "power-caps"),
	}

	for _, opt := range opts {
		opt(ret)
	}

	ret.hwmonDir = filepath.Join(sysfsPath, ret.hwmonDir)
	return ret, nil
}

// probeHwmon returns the hwmon device directory below the parent directory.
// The parent is expected to hold exactly one entry; if it holds more, the
// first one in name order is used.
func (pc *PowerCaps) probeHwmon() (string, error) {
	entries, err := listDir(pc.hwmonDir)
	if err != nil {
		return "", err
	}

	if len(entries) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyDirectory, pc.hwmonDir)
	}

	chosen := filepath.Join(pc.hwmonDir, entries[0].Name())
	if len(entries) > 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		pc.logger.Warn("Multiple hwmon devices found, using the first one",
			"dir", pc.hwmonDir, "entries", names, "chosen", chosen)
	}

	return chosen, nil
}

// probeRail returns the handle of the control file of rail
func (pc *PowerCaps) probeRail(rail Rail) (RailHandle, error) {
	base, ok := pc.files[rail]
	if !ok {
		return RailHandle{}, fmt.Errorf("unknown power rail %s", rail)
	}

	hwmon, err := pc.probeHwmon()
	if err != nil {
		return RailHandle{}, err
	}

	path := filepath.Join(hwmon, base)
	if err := checkControlFile(path); err != nil {
		return RailHandle{}, err
	}

	pc.logger.Debug("Probed power cap", "rail", rail, "path", path)
	return RailHandle{Rail: rail, Path: path}, nil
}

// Rails probes the control files of all rails
func (pc *PowerCaps) Rails() ([]RailHandle, error) {
	handles := make([]RailHandle, 0, len(AllRails))
	for _, rail := range AllRails {
		h, err := pc.probeRail(rail)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Cap reads the current power cap of rail
func (pc *PowerCaps) Cap(rail Rail) (Power, error) {
	h, err := pc.probeRail(rail)
	if err != nil {
		return 0, err
	}

	uw, err := readUint(h.Path)
	if err != nil {
		return 0, err
	}
	return Power(uw), nil
}

// SetCap writes a new power cap for rail. The value is not range checked;
// the driver rejects what it does not support.
func (pc *PowerCaps) SetCap(rail Rail, p Power) error {
	h, err := pc.probeRail(rail)
	if err != nil {
		return err
	}

	if err := writeUint(h.Path, p.MicroWatts()); err != nil {
		return err
	}

	pc.logger.Info("Power cap updated", "rail", rail, "power", p, "microwatts", p.MicroWatts())
	return nil
}

func (pc *PowerCaps) Sustained() (Power, error) {
	return pc.Cap(Sustained)
}

func (pc *PowerCaps) Boost() (Power, error) {
	return pc.Cap(Boost)
}

func (pc *PowerCaps) SetSustained(p Power) error {
	return pc.SetCap(Sustained, p)
}

func (pc *PowerCaps) SetBoost(p Power) error {
	return pc.SetCap(Boost, p)
}
