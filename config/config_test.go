// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kingpin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"
)

// validConfig returns the default config pointed at a temporary sysfs
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Host.SysFS = t.TempDir()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "/sys", cfg.Host.SysFS)
	assert.Equal(t, "devices/pci0000:00/0000:00:08.1/0000:04:00.0/hwmon", cfg.Power.HwmonDir)
	assert.Equal(t, "power1_cap", cfg.Power.SustainedFile)
	assert.Equal(t, "power2_cap", cfg.Power.BoostFile)
	assert.Equal(t, ptr.To(true), cfg.Power.Enabled)
	assert.Equal(t, "class/backlight", cfg.Backlight.ClassDir)
	assert.Equal(t, `^amdgpu_bl[0-9]+$`, cfg.Backlight.Pattern)
	assert.Equal(t, ptr.To(true), cfg.Backlight.Enabled)
	assert.Equal(t, 3.0, cfg.UI.MinPower)
	assert.Equal(t, 30.0, cfg.UI.MaxPower)

	assert.NoError(t, cfg.Validate(SkipHostValidation))
}

func TestLoadFromYAML(t *testing.T) {
	sysfs := t.TempDir()
	yamlData := `
log:
  level: debug
  format: json
host:
  sysfs: ` + sysfs + `
power:
  enabled: false
  sustainedFile: power3_cap
backlight:
  pattern: ^intel_backlight$
ui:
  maxPower: 25
`
	cfg, err := (&Builder{}).Merge(yamlData).Build()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, sysfs, cfg.Host.SysFS)
	assert.False(t, *cfg.Power.Enabled)
	assert.Equal(t, "power3_cap", cfg.Power.SustainedFile)
	assert.Equal(t, "power2_cap", cfg.Power.BoostFile, "unset fields keep defaults")
	assert.Equal(t, "^intel_backlight$", cfg.Backlight.Pattern)
	assert.Equal(t, 25.0, cfg.UI.MaxPower)
	assert.Equal(t, 3.0, cfg.UI.MinPower)
}

func TestLoadInvalidConfigFromYAML(t *testing.T) {
	yamlData := `
log:
  level: FATAL
  format: json
`
	cfg, err := (&Builder{}).Merge(yamlData).Build(SkipHostValidation)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Nil(t, cfg)
}

func TestWhitespaceHandling(t *testing.T) {
	cfg := validConfig(t)
	cfg.Log.Level = "  debug  "
	cfg.Power.HwmonDir = " class/hwmon\n"
	cfg.Backlight.Pattern = "\t^acpi_video0$ "

	cfg.sanitize()

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "class/hwmon", cfg.Power.HwmonDir)
	assert.Equal(t, "^acpi_video0$", cfg.Backlight.Pattern)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{{
		name:   "invalid log level",
		mutate: func(c *Config) { c.Log.Level = "trace" },
		errMsg: "invalid log level: trace",
	}, {
		name:   "invalid log format",
		mutate: func(c *Config) { c.Log.Format = "xml" },
		errMsg: "invalid log format: xml",
	}, {
		name:   "unreadable sysfs",
		mutate: func(c *Config) { c.Host.SysFS = "/path/invalid" },
		errMsg: "invalid sysfs path",
	}, {
		name:   "empty hwmon dir",
		mutate: func(c *Config) { c.Power.HwmonDir = "" },
		errMsg: "power hwmon directory cannot be empty",
	}, {
		name:   "empty cap file",
		mutate: func(c *Config) { c.Power.BoostFile = "" },
		errMsg: "power cap file names cannot be empty",
	}, {
		name:   "cap file with directory",
		mutate: func(c *Config) { c.Power.SustainedFile = "hwmon0/power1_cap" },
		errMsg: "must be base names",
	}, {
		name:   "empty backlight dir",
		mutate: func(c *Config) { c.Backlight.ClassDir = "" },
		errMsg: "backlight class directory cannot be empty",
	}, {
		name:   "empty backlight pattern",
		mutate: func(c *Config) { c.Backlight.Pattern = "" },
		errMsg: "backlight pattern cannot be empty",
	}, {
		name:   "bad backlight pattern",
		mutate: func(c *Config) { c.Backlight.Pattern = "amdgpu_bl[" },
		errMsg: "invalid backlight pattern",
	}, {
		name:   "non positive min power",
		mutate: func(c *Config) { c.UI.MinPower = 0 },
		errMsg: "invalid ui min power",
	}, {
		name:   "max below min",
		mutate: func(c *Config) { c.UI.MaxPower = 2 },
		errMsg: "invalid ui max power",
	}, {
		name:   "max power beyond microwatt range",
		mutate: func(c *Config) { c.UI.MaxPower = 2e13 },
		errMsg: "invalid ui max power",
	}, {
		name:   "zero power step",
		mutate: func(c *Config) { c.UI.PowerStep = 0 },
		errMsg: "invalid ui power step",
	}, {
		name:   "brightness step too large",
		mutate: func(c *Config) { c.UI.BrightnessStep = 101 },
		errMsg: "invalid ui brightness step",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Log.Level = "loud"
	cfg.UI.PowerStep = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
	assert.Contains(t, err.Error(), "invalid ui power step")
}

func TestValidateWithSkip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host.SysFS = "/path/invalid"

	assert.Error(t, cfg.Validate())
	assert.NoError(t, cfg.Validate(SkipHostValidation))
}

func TestCommandLinePrecedence(t *testing.T) {
	sysfs := t.TempDir()
	flagSysfs := t.TempDir()
	yamlData := `
host:
  sysfs: ` + sysfs + `
power:
  hwmonDir: class/hwmon
backlight:
  enabled: true
  pattern: ^acpi_video[0-9]$
`
	cfg, err := (&Builder{}).Merge(yamlData).Build()
	require.NoError(t, err)

	app := kingpin.New("test", "Test application")
	updateConfig := RegisterFlags(app)

	_, err = app.Parse([]string{
		"--log.level=debug",
		"--host.sysfs=" + flagSysfs,
		"--no-backlight",
	})
	require.NoError(t, err)
	require.NoError(t, updateConfig(cfg))

	assert.Equal(t, "debug", cfg.Log.Level, "flag overrides default")
	assert.Equal(t, flagSysfs, cfg.Host.SysFS, "flag overrides yaml")
	assert.False(t, *cfg.Backlight.Enabled, "flag overrides yaml")
	assert.Equal(t, "class/hwmon", cfg.Power.HwmonDir, "yaml kept when flag not set")
	assert.Equal(t, "^acpi_video[0-9]$", cfg.Backlight.Pattern, "yaml kept when flag not set")
	assert.True(t, *cfg.Power.Enabled)
}

func TestCommandLineDevicesFlags(t *testing.T) {
	cfg := validConfig(t)

	app := kingpin.New("test", "Test application")
	updateConfig := RegisterFlags(app)

	_, err := app.Parse([]string{
		"--power.hwmon-dir=class/hwmon",
		"--backlight.pattern=^intel_backlight$",
		"--no-power",
	})
	require.NoError(t, err)
	require.NoError(t, updateConfig(cfg))

	assert.Equal(t, "class/hwmon", cfg.Power.HwmonDir)
	assert.Equal(t, "^intel_backlight$", cfg.Backlight.Pattern)
	assert.False(t, *cfg.Power.Enabled)
}

func TestCommandLineInvalidPattern(t *testing.T) {
	cfg := validConfig(t)

	app := kingpin.New("test", "Test application")
	updateConfig := RegisterFlags(app)

	_, err := app.Parse([]string{"--backlight.pattern=(("})
	require.NoError(t, err)

	err = updateConfig(cfg)
	assert.ErrorContains(t, err, "invalid backlight pattern")
}

func TestBacklightRegexp(t *testing.T) {
	cfg := DefaultConfig()
	re, err := cfg.BacklightRegexp()
	require.NoError(t, err)
	assert.True(t, re.MatchString("amdgpu_bl0"))
	assert.False(t, re.MatchString("acpi_video0"))

	cfg.Backlight.Pattern = "[" // unbalanced
	_, err = cfg.BacklightRegexp()
	assert.Error(t, err)
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()

	assert.Contains(t, s, "level: info")
	assert.Contains(t, s, "sysfs: /sys")
	assert.Contains(t, s, "sustainedFile: power1_cap")
	assert.Contains(t, s, "brightnessStep: 5")
	assert.Contains(t, s, "amdgpu_bl")
}

func TestBuilder(t *testing.T) {
	t.Run("Build", func(t *testing.T) {
		b := &Builder{}
		got, err := b.Build(SkipHostValidation)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().String(), got.String())
	})

	t.Run("Use", func(t *testing.T) {
		exp := validConfig(t)
		exp.Log.Level = "warn"

		got, err := (&Builder{}).Use(exp).Build()
		require.NoError(t, err)
		assert.Equal(t, exp.String(), got.String())
	})

	t.Run("MergeWithInvalidYAML", func(t *testing.T) {
		cfg, err := (&Builder{}).Merge(`invalid yaml: [invalid`).Build(SkipHostValidation)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
		assert.Nil(t, cfg)
	})

	t.Run("MultipleMerges", func(t *testing.T) {
		cfg, err := (&Builder{}).
			Merge(`
log:
  level: debug
`, `
ui:
  powerStep: 0.5
`, `
log:
  level: error
`).
			Build(SkipHostValidation)
		require.NoError(t, err)

		exp := DefaultConfig()
		exp.Log.Level = "error"
		exp.UI.PowerStep = 0.5
		assert.Equal(t, exp.String(), cfg.String())
	})

	t.Run("MergeFalseBool", func(t *testing.T) {
		cfg, err := (&Builder{}).Merge("power:\n  enabled: false\n").Build(SkipHostValidation)
		require.NoError(t, err)
		assert.Equal(t, ptr.To(false), cfg.Power.Enabled)
		assert.Equal(t, ptr.To(true), cfg.Backlight.Enabled)
	})

	t.Run("MergeFiles", func(t *testing.T) {
		dir := t.TempDir()
		system := filepath.Join(dir, "system.yaml")
		user := filepath.Join(dir, "user.yaml")
		require.NoError(t, os.WriteFile(system, []byte("log:\n  level: debug\nui:\n  maxPower: 20\n"), 0o644))
		require.NoError(t, os.WriteFile(user, []byte("log:\n  level: warn\n"), 0o644))

		cfg, err := (&Builder{}).MergeFiles(system, user).Build(SkipHostValidation)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Log.Level)
		assert.Equal(t, 20.0, cfg.UI.MaxPower)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := (&Builder{}).MergeFiles(filepath.Join(t.TempDir(), "nope.yaml")).Build(SkipHostValidation)
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		_, err := (&Builder{}).Merge("ui:\n  maxPower: 1\n").Build(SkipHostValidation)
		assert.ErrorContains(t, err, "invalid ui max power")
	})
}
