// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/powerdeck/powerdeck/internal/device"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"
)

// Config represents the complete application configuration
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}
	Host struct {
		SysFS string `yaml:"sysfs"`
	}

	// Power cap (hwmon) settings. Paths are relative to Host.SysFS
	Power struct {
		Enabled       *bool  `yaml:"enabled"`
		HwmonDir      string `yaml:"hwmonDir"`
		SustainedFile string `yaml:"sustainedFile"`
		BoostFile     string `yaml:"boostFile"`
	}

	// Backlight settings. ClassDir is relative to Host.SysFS
	Backlight struct {
		Enabled  *bool  `yaml:"enabled"`
		ClassDir string `yaml:"classDir"`
		Pattern  string `yaml:"pattern"`
	}

	// UI holds slider ranges of the terminal front-end
	UI struct {
		MinPower       float64 `yaml:"minPower"`       // watts
		MaxPower       float64 `yaml:"maxPower"`       // watts
		PowerStep      float64 `yaml:"powerStep"`      // watts
		BrightnessStep int     `yaml:"brightnessStep"` // percent of max brightness
	}

	Config struct {
		Log       Log       `yaml:"log"`
		Host      Host      `yaml:"host"`
		Power     Power     `yaml:"power"`
		Backlight Backlight `yaml:"backlight"`
		UI        UI        `yaml:"ui"`
	}
)

type SkipValidation int

const (
	SkipHostValidation SkipValidation = 1
)

const (
	// Flags
	LogLevelFlag  = "log.level"
	LogFormatFlag = "log.format"

	HostSysFSFlag = "host.sysfs"

	PowerEnabledFlag  = "power"
	PowerHwmonDirFlag = "power.hwmon-dir"

	BacklightEnabledFlag = "backlight"
	BacklightPatternFlag = "backlight.pattern"
)

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	cfg := &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Host: Host{
			SysFS: "/sys",
		},
		Power: Power{
			Enabled:       ptr.To(true),
			HwmonDir:      "devices/pci0000:00/0000:00:08.1/0000:04:00.0/hwmon",
			SustainedFile: "power1_cap",
			BoostFile:     "power2_cap",
		},
		Backlight: Backlight{
			Enabled:  ptr.To(true),
			ClassDir: "class/backlight",
			Pattern:  `^amdgpu_bl[0-9]+$`,
		},
		UI: UI{
			MinPower:       3,
			MaxPower:       30,
			PowerStep:      1,
			BrightnessStep: 5,
		},
	}

	return cfg
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app
// and returns ConfigUpdaterFn that updates the config from parsed flags
// as command line arguments override config file settings
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	// track flags that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}

		for _, element := range ctx.Elements {
			if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
				flagsSet[flag.Model().Name] = true
			}
		}
		return nil
	})

	// Logging
	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")

	// host
	hostSysFS := app.Flag(HostSysFSFlag, "Host sysfs path").Default("/sys").ExistingDir()

	// devices
	powerEnabled := app.Flag(PowerEnabledFlag, "Enable power cap control").Default("true").Bool()
	hwmonDir := app.Flag(PowerHwmonDirFlag, "hwmon parent directory of the APU, relative to sysfs").String()
	backlightEnabled := app.Flag(BacklightEnabledFlag, "Enable backlight control").Default("true").Bool()
	backlightPattern := app.Flag(BacklightPatternFlag, "Regular expression backlight device names must match").String()

	return func(cfg *Config) error {
		// Logging settings
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}

		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}

		if flagsSet[HostSysFSFlag] {
			cfg.Host.SysFS = *hostSysFS
		}

		if flagsSet[PowerEnabledFlag] {
			cfg.Power.Enabled = powerEnabled
		}

		if flagsSet[PowerHwmonDirFlag] {
			cfg.Power.HwmonDir = *hwmonDir
		}

		if flagsSet[BacklightEnabledFlag] {
			cfg.Backlight.Enabled = backlightEnabled
		}

		if flagsSet[BacklightPatternFlag] {
			cfg.Backlight.Pattern = *backlightPattern
		}

		cfg.sanitize()
		return cfg.Validate()
	}
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.Host.SysFS = strings.TrimSpace(c.Host.SysFS)
	c.Power.HwmonDir = strings.TrimSpace(c.Power.HwmonDir)
	c.Power.SustainedFile = strings.TrimSpace(c.Power.SustainedFile)
	c.Power.BoostFile = strings.TrimSpace(c.Power.BoostFile)
	c.Backlight.ClassDir = strings.TrimSpace(c.Backlight.ClassDir)
	c.Backlight.Pattern = strings.TrimSpace(c.Backlight.Pattern)
}

// Validate checks for configuration errors
func (c *Config) Validate(skips ...SkipValidation) error {
	validationSkipped := make(map[SkipValidation]bool, len(skips))
	for _, v := range skips {
		validationSkipped[v] = true
	}
	var errs []string
	{ // log level

		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}

		// Validate logging settings
		if _, valid := validLogLevels[c.Log.Level]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		validFormats := map[string]bool{
			"text": true,
			"json": true,
		}
		if _, valid := validFormats[c.Log.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}

	{ // Validate host settings
		if _, skip := validationSkipped[SkipHostValidation]; !skip {
			if err := canReadDir(c.Host.SysFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid sysfs path: %s: %s ", c.Host.SysFS, err.Error()))
			}
		}
	}
	{ // Power
		if c.Power.HwmonDir == "" {
			errs = append(errs, "power hwmon directory cannot be empty")
		}
		if c.Power.SustainedFile == "" || c.Power.BoostFile == "" {
			errs = append(errs, "power cap file names cannot be empty")
		}
		if strings.ContainsRune(c.Power.SustainedFile, '/') || strings.ContainsRune(c.Power.BoostFile, '/') {
			errs = append(errs, "power cap file names must be base names")
		}
	}
	{ // Backlight
		if c.Backlight.ClassDir == "" {
			errs = append(errs, "backlight class directory cannot be empty")
		}
		if c.Backlight.Pattern == "" {
			errs = append(errs, "backlight pattern cannot be empty")
		} else if _, err := regexp.Compile(c.Backlight.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("invalid backlight pattern %q: %s", c.Backlight.Pattern, err.Error()))
		}
	}
	{ // UI
		if err := device.CheckWatts(c.UI.MinPower); err != nil {
			errs = append(errs, fmt.Sprintf("invalid ui min power: %s", err))
		}
		if err := device.CheckWatts(c.UI.MaxPower); err != nil {
			errs = append(errs, fmt.Sprintf("invalid ui max power: %s", err))
		} else if c.UI.MaxPower < c.UI.MinPower {
			errs = append(errs, fmt.Sprintf("invalid ui max power: %g is below min power %g", c.UI.MaxPower, c.UI.MinPower))
		}
		if err := device.CheckWatts(c.UI.PowerStep); err != nil {
			errs = append(errs, fmt.Sprintf("invalid ui power step: %s", err))
		}
		if c.UI.BrightnessStep < 1 || c.UI.BrightnessStep > 100 {
			errs = append(errs, fmt.Sprintf("invalid ui brightness step: %d must be between 1 and 100", c.UI.BrightnessStep))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

// BacklightRegexp compiles the backlight pattern. Validate has already
// rejected patterns that do not compile.
func (c *Config) BacklightRegexp() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.Backlight.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid backlight pattern %q: %w", c.Backlight.Pattern, err)
	}
	return re, nil
}

func canReadDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		// ignored on purpose
		_ = f.Close()
	}()

	_, err = f.ReadDir(1)
	if err != nil && err != io.EOF {
		return err
	}

	return nil
}

// String renders the configuration as YAML
func (c *Config) String() string {
	bytes, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(bytes)
}
