// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mum4k/termdash"
	"github.com/mum4k/termdash/cell"
	"github.com/mum4k/termdash/container"
	"github.com/mum4k/termdash/linestyle"
	"github.com/mum4k/termdash/terminal/tcell"
	"github.com/mum4k/termdash/terminal/terminalapi"
	"github.com/mum4k/termdash/widgets/gauge"
	"github.com/mum4k/termdash/widgets/text"
	"github.com/powerdeck/powerdeck/internal/service"
)

const redrawInterval = 250 * time.Millisecond

// TerminalFactory opens the terminal the dashboard draws on
type TerminalFactory func() (terminalapi.Terminal, error)

func defaultTerminal() (terminalapi.Terminal, error) {
	return tcell.New()
}

// Dashboard is the interactive front-end: one gauge per slider and a status pane
type Dashboard struct {
	logger      *slog.Logger
	model       *Model
	newTerminal TerminalFactory

	mu        sync.Mutex
	term      terminalapi.Terminal
	running   bool
	container *container.Container
	gauges    [numSliders]*gauge.Gauge
	status    *text.Text
}

var (
	_ service.Initializer = (*Dashboard)(nil)
	_ service.Runner      = (*Dashboard)(nil)
	_ service.Shutdowner  = (*Dashboard)(nil)
)

// DashboardOptionFn configures a Dashboard
type DashboardOptionFn func(*Dashboard)

// WithLogger sets the dashboard logger
func WithLogger(logger *slog.Logger) DashboardOptionFn {
	return func(d *Dashboard) {
		d.logger = logger.With("service", "dashboard")
	}
}

// WithTerminal replaces the tcell terminal, mostly for tests
func WithTerminal(f TerminalFactory) DashboardOptionFn {
	return func(d *Dashboard) {
		d.newTerminal = f
	}
}

// NewDashboard creates a dashboard over model
func NewDashboard(model *Model, opts ...DashboardOptionFn) *Dashboard {
	d := &Dashboard{
		logger:      slog.Default().With("service", "dashboard"),
		model:       model,
		newTerminal: defaultTerminal,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dashboard) Name() string {
	return "dashboard"
}

// Init opens the terminal and builds the widgets
func (d *Dashboard) Init() error {
	t, err := d.newTerminal()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	d.term = t

	if err := d.build(); err != nil {
		t.Close()
		d.term = nil
		return err
	}
	return nil
}

func (d *Dashboard) build() error {
	for i := range d.gauges {
		g, err := gauge.New(
			gauge.Height(1),
			gauge.Color(cell.ColorBlue),
			gauge.HideTextProgress(),
		)
		if err != nil {
			return fmt.Errorf("failed to create gauge: %w", err)
		}
		d.gauges[i] = g
	}

	status, err := text.New(text.WrapAtWords())
	if err != nil {
		return fmt.Errorf("failed to create status pane: %w", err)
	}
	d.status = status

	c, err := container.New(d.term,
		container.Border(linestyle.Light),
		container.BorderTitle("powerdeck  "+HelpText),
		container.SplitHorizontal(
			container.Top(
				container.SplitHorizontal(
					container.Top(d.sliderPane(SustainedSlider)...),
					container.Bottom(d.sliderPane(BoostSlider)...),
				),
			),
			container.Bottom(
				container.SplitHorizontal(
					container.Top(d.sliderPane(BrightnessSlider)...),
					container.Bottom(
						container.Border(linestyle.Light),
						container.BorderTitle("Status"),
						container.PlaceWidget(d.status),
					),
				),
			),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create layout: %w", err)
	}
	d.container = c
	return nil
}

func (d *Dashboard) sliderPane(id SliderID) []container.Option {
	return []container.Option{
		container.ID(paneID(id)),
		container.Border(linestyle.Light),
		container.BorderTitle(id.String()),
		container.PlaceWidget(d.gauges[id]),
	}
}

func paneID(id SliderID) string {
	return fmt.Sprintf("slider-%d", int(id))
}

// Run reads all devices once, then serves key presses until the user quits
// or ctx is canceled
func (d *Dashboard) Run(ctx context.Context) error {
	d.mu.Lock()
	t := d.term
	d.running = t != nil
	d.mu.Unlock()
	if t == nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("dashboard is not initialized")
	}
	defer d.closeTerminal()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.model.Refresh()
	if err := d.render(); err != nil {
		return err
	}

	onKey := func(k *terminalapi.Keyboard) {
		if HandleKey(d.model, k) {
			d.logger.Debug("Quit requested")
			cancel()
			return
		}
		if err := d.render(); err != nil {
			d.logger.Error("Failed to render dashboard", "error", err)
		}
	}

	return termdash.Run(ctx, t, d.container,
		termdash.KeyboardSubscriber(onKey),
		termdash.RedrawInterval(redrawInterval),
	)
}

// render copies the model state into the widgets
func (d *Dashboard) render() error {
	snap := d.model.Snapshot()

	for _, s := range snap.Sliders {
		focused := s.ID == snap.Focus
		label := s.Label()
		if focused {
			label = "▶ " + label
		}

		color := cell.ColorBlue
		if !s.Available {
			color = cell.ColorRed
		}
		if err := d.gauges[s.ID].Percent(s.Percent(), gauge.TextLabel(label), gauge.Color(color)); err != nil {
			return fmt.Errorf("failed to update %s gauge: %w", s.ID, err)
		}

		border := cell.ColorDefault
		if focused {
			border = cell.ColorYellow
		}
		if err := d.container.Update(paneID(s.ID), container.BorderColor(border)); err != nil {
			return fmt.Errorf("failed to update %s pane: %w", s.ID, err)
		}
	}

	d.status.Reset()
	if snap.Status.Text == "" {
		return nil
	}
	if snap.Status.Err {
		return d.status.Write(snap.Status.Text, text.WriteCellOpts(cell.FgColor(cell.ColorRed)))
	}
	return d.status.Write(snap.Status.Text)
}

// Shutdown restores the terminal. While Run is active the terminal is
// left to Run, which closes it on return.
func (d *Dashboard) Shutdown() error {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if !running {
		d.closeTerminal()
	}
	return nil
}

func (d *Dashboard) closeTerminal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.term != nil {
		d.term.Close()
		d.term = nil
	}
}
