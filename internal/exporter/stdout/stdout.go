// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/powerdeck/powerdeck/internal/device"
)

// Row is one line of the status table
type Row struct {
	Device  string
	Control string
	Raw     string
	Value   string
}

type Opts struct {
	logger *slog.Logger
	out    io.Writer
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger: slog.Default(),
		out:    os.Stdout,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Printer
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

func WithOutput(out io.Writer) OptionFn {
	return func(o *Opts) {
		o.out = out
	}
}

// Printer writes a one-shot status table of all devices
type Printer struct {
	logger    *slog.Logger
	out       io.Writer
	power     device.PowerCapController
	backlight device.BacklightController
}

// NewPrinter creates a Printer; a nil controller is left out of the table
func NewPrinter(pc device.PowerCapController, bl device.BacklightController, applyOpts ...OptionFn) *Printer {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Printer{
		logger:    opts.logger.With("service", "status"),
		out:       opts.out,
		power:     pc,
		backlight: bl,
	}
}

// Rows reads every device. A device that cannot be read still gets a row
// describing the failure, and the failures are returned joined.
func (p *Printer) Rows() ([]Row, error) {
	var rows []Row
	var errs []error

	if p.power != nil {
		r, err := p.powerRows()
		rows = append(rows, r...)
		errs = append(errs, err)
	}
	if p.backlight != nil {
		r, err := p.backlightRow()
		rows = append(rows, r)
		errs = append(errs, err)
	}
	return rows, errors.Join(errs...)
}

func (p *Printer) powerRows() ([]Row, error) {
	handles, err := p.power.Rails()
	if err != nil {
		p.logger.Debug("Power caps unavailable", "error", err)
		return []Row{failedRow("power caps", err)}, err
	}

	rows := make([]Row, 0, len(handles))
	var errs []error
	for _, h := range handles {
		c, err := p.power.Cap(h.Rail)
		if err != nil {
			rows = append(rows, Row{Device: h.Rail.String(), Control: h.Path, Raw: "-", Value: "error: " + err.Error()})
			errs = append(errs, err)
			continue
		}
		rows = append(rows, Row{
			Device:  h.Rail.String(),
			Control: h.Path,
			Raw:     strconv.FormatUint(c.MicroWatts(), 10),
			Value:   c.String(),
		})
	}
	return rows, errors.Join(errs...)
}

func (p *Printer) backlightRow() (Row, error) {
	h, err := p.backlight.Probe()
	if err != nil {
		p.logger.Debug("Backlight unavailable", "error", err)
		return failedRow("backlight", err), err
	}

	row := Row{Device: "backlight " + h.Name, Control: h.Path}
	v, err := p.backlight.Brightness()
	if err != nil {
		row.Raw = "-"
		row.Value = "error: " + err.Error()
		return row, err
	}

	row.Raw = fmt.Sprintf("%d/%d", v, h.MaxBrightness)
	row.Value = "-"
	if h.MaxBrightness > 0 {
		row.Value = fmt.Sprintf("%.0f%%", float64(v)*100/float64(h.MaxBrightness))
	}
	return row, nil
}

func failedRow(dev string, err error) Row {
	return Row{Device: dev, Control: "-", Raw: "-", Value: "error: " + err.Error()}
}

// Print writes the status table. The table is written even when some
// devices fail; the failures are returned afterwards.
func (p *Printer) Print() error {
	rows, readErr := p.Rows()
	if err := write(p.out, rows); err != nil {
		return fmt.Errorf("failed to render status table: %w", err)
	}
	return readErr
}

func write(out io.Writer, rows []Row) error {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r.Device, r.Control, r.Raw, r.Value})
	}

	table := tablewriter.NewWriter(out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignLeft
	})
	table.Header([]string{"Device", "Control", "Raw", "Value"})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
