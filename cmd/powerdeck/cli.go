// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/powerdeck/powerdeck/config"
	"github.com/powerdeck/powerdeck/internal/device"
	"github.com/powerdeck/powerdeck/internal/exporter/prometheus"
	"github.com/powerdeck/powerdeck/internal/exporter/stdout"
	"github.com/powerdeck/powerdeck/internal/logger"
	"github.com/powerdeck/powerdeck/internal/service"
	"github.com/powerdeck/powerdeck/internal/tui"
	"github.com/powerdeck/powerdeck/internal/version"
	"golang.org/x/sys/unix"
)

const appName = "powerdeck"

// cli is the kingpin application with the parsed values of every command
type cli struct {
	app    *kingpin.Application
	stdout io.Writer
	stderr io.Writer

	configFiles  *[]string
	updateConfig config.ConfigUpdaterFn

	powerGet      *kingpin.CmdClause
	powerGetRail  *string
	powerGetWatts *bool

	powerSet      *kingpin.CmdClause
	powerSetRail  *string
	powerSetValue *string
	powerSetWatts *bool

	brightnessGet *kingpin.CmdClause

	brightnessSet     *kingpin.CmdClause
	brightnessValue   *string
	brightnessPercent *bool

	status         *kingpin.CmdClause
	statusTextfile *string

	ui      *kingpin.CmdClause
	version *kingpin.CmdClause
}

func newCLI(stdout, stderr io.Writer) *cli {
	app := kingpin.New(appName, "Power cap and backlight control for Linux handhelds.")
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	c := &cli{app: app, stdout: stdout, stderr: stderr}
	c.configFiles = app.Flag("config.file", "Path to YAML configuration file; repeat to layer files").Strings()
	c.updateConfig = config.RegisterFlags(app)

	power := app.Command("power", "Read or write APU power caps.")
	c.powerGet = power.Command("get", "Print power caps in microwatts.")
	c.powerGetRail = c.powerGet.Arg("rail", "sustained (slow) or boost (fast); both when omitted").String()
	c.powerGetWatts = c.powerGet.Flag("watts", "Print watts instead of microwatts").Bool()

	c.powerSet = power.Command("set", "Write a power cap.")
	c.powerSetRail = c.powerSet.Arg("rail", "sustained (slow) or boost (fast)").Required().String()
	c.powerSetValue = c.powerSet.Arg("value", "Power cap in microwatts").Required().String()
	c.powerSetWatts = c.powerSet.Flag("watts", "Treat value as watts").Bool()

	brightness := app.Command("brightness", "Read or write backlight brightness.")
	c.brightnessGet = brightness.Command("get", "Print brightness as value/max.")
	c.brightnessSet = brightness.Command("set", "Write brightness.")
	c.brightnessValue = c.brightnessSet.Arg("value", "Brightness in device units").Required().String()
	c.brightnessPercent = c.brightnessSet.Flag("percent", "Treat value as a percentage of max brightness").Bool()

	c.status = app.Command("status", "Print a table of all controls.")
	c.statusTextfile = c.status.Flag("textfile", "Also write the values as Prometheus metrics to this file").String()

	c.ui = app.Command("ui", "Interactive terminal sliders.")
	c.version = app.Command("version", "Print build information.")
	return c
}

// run parses args and executes the selected command. Errors are reported
// on stderr before being returned.
func (c *cli) run(args []string) error {
	cmd, err := c.app.Parse(args)
	if err != nil {
		c.app.Errorf("%s", err)
		return err
	}

	if cmd == c.version.FullCommand() {
		_, err := fmt.Fprintln(c.stdout, version.Info())
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		c.app.Errorf("%s", err)
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, c.stderr)
	if err != nil {
		c.app.Errorf("%s", err)
		return err
	}
	// the dashboard owns the terminal; logs would corrupt it
	if cmd == c.ui.FullCommand() && isTerminal(c.stderr) {
		log = logger.Discard()
	}
	log.Debug("Effective configuration", "config", cfg.String())

	if err := c.execute(cmd, cfg, log); err != nil {
		log.Error("Command failed", "command", cmd, "error", err)
		c.app.Errorf("%s", err)
		return err
	}
	return nil
}

// loadConfig layers the config files over the defaults, then applies flags
func (c *cli) loadConfig() (*config.Config, error) {
	b := &config.Builder{}
	cfg, err := b.Use(config.DefaultConfig()).MergeFiles(*c.configFiles...).Build(config.SkipHostValidation)
	if err != nil {
		return nil, err
	}
	if err := c.updateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *cli) execute(cmd string, cfg *config.Config, log *slog.Logger) error {
	devs, err := newDevices(cfg, log)
	if err != nil {
		return err
	}

	switch cmd {
	case c.powerGet.FullCommand():
		return c.runPowerGet(devs)
	case c.powerSet.FullCommand():
		return c.runPowerSet(devs)
	case c.brightnessGet.FullCommand():
		return c.runBrightnessGet(devs)
	case c.brightnessSet.FullCommand():
		return c.runBrightnessSet(devs)
	case c.status.FullCommand():
		return c.runStatus(devs, log)
	case c.ui.FullCommand():
		return c.runUI(cfg, devs, log)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (c *cli) runPowerGet(devs *devices) error {
	pc, err := devs.powerCaps()
	if err != nil {
		return err
	}

	rails := device.AllRails
	if *c.powerGetRail != "" {
		rail, err := device.ParseRail(*c.powerGetRail)
		if err != nil {
			return err
		}
		rails = []device.Rail{rail}
	}

	for _, rail := range rails {
		p, err := pc.Cap(rail)
		if err != nil {
			return err
		}

		value := strconv.FormatUint(p.MicroWatts(), 10)
		if *c.powerGetWatts {
			value = p.String()
		}
		if len(rails) > 1 {
			value = rail.String() + " " + value
		}
		if _, err := fmt.Fprintln(c.stdout, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) runPowerSet(devs *devices) error {
	pc, err := devs.powerCaps()
	if err != nil {
		return err
	}

	rail, err := device.ParseRail(*c.powerSetRail)
	if err != nil {
		return err
	}

	p, err := parsePower(*c.powerSetValue, *c.powerSetWatts)
	if err != nil {
		return err
	}
	return pc.SetCap(rail, p)
}

// parsePower reads microwatts, or watts when watts is set
func parsePower(s string, watts bool) (device.Power, error) {
	if !watts {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid power %q: expected microwatts as an unsigned integer", s)
		}
		return device.Power(v), nil
	}

	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid power %q: expected a positive number of watts", s)
	}
	if err := device.CheckWatts(w); err != nil {
		return 0, fmt.Errorf("invalid power %q: %w", s, err)
	}
	return device.PowerFromWatts(w), nil
}

func (c *cli) runBrightnessGet(devs *devices) error {
	bl, err := devs.backlightControl()
	if err != nil {
		return err
	}

	h, err := bl.Probe()
	if err != nil {
		return err
	}
	v, err := bl.Brightness()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.stdout, "%d/%d\n", v, h.MaxBrightness)
	return err
}

func (c *cli) runBrightnessSet(devs *devices) error {
	bl, err := devs.backlightControl()
	if err != nil {
		return err
	}

	if *c.brightnessPercent {
		pct, err := strconv.ParseFloat(*c.brightnessValue, 64)
		if err != nil {
			return fmt.Errorf("invalid brightness %q: expected a percentage", *c.brightnessValue)
		}
		return bl.SetBrightnessPercent(pct)
	}

	v, err := strconv.ParseUint(*c.brightnessValue, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid brightness %q: expected an unsigned integer", *c.brightnessValue)
	}
	return bl.SetBrightness(v)
}

func (c *cli) runStatus(devs *devices, log *slog.Logger) error {
	pc, bl := devs.controllers()
	printer := stdout.NewPrinter(pc, bl, stdout.WithOutput(c.stdout), stdout.WithLogger(log))
	readErr := printer.Print()

	if *c.statusTextfile != "" {
		exporter := prometheus.NewExporter(
			prometheus.WithLogger(log),
			prometheus.WithCollectors(prometheus.CreateCollectors(pc, bl, log)),
		)
		if err := service.Init(log, []service.Service{exporter}); err != nil {
			return err
		}
		if err := exporter.WriteTextfile(*c.statusTextfile); err != nil {
			return err
		}
	}
	return readErr
}

func (c *cli) runUI(cfg *config.Config, devs *devices, log *slog.Logger) error {
	pc, bl := devs.controllers()
	limits := tui.Limits{
		MinPower:       device.PowerFromWatts(cfg.UI.MinPower),
		MaxPower:       device.PowerFromWatts(cfg.UI.MaxPower),
		PowerStep:      device.PowerFromWatts(cfg.UI.PowerStep),
		BrightnessStep: cfg.UI.BrightnessStep,
	}
	model := tui.NewModel(pc, bl, limits, log)

	services := []service.Service{
		tui.NewDashboard(model, tui.WithLogger(log)),
		service.NewSignalHandler(log, os.Interrupt, syscall.SIGTERM),
	}
	if err := service.Init(log, services); err != nil {
		return err
	}
	return service.Run(context.Background(), log, services)
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}
