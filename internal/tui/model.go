// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/powerdeck/powerdeck/internal/device"
)

// SliderID identifies one of the dashboard sliders
type SliderID int

const (
	SustainedSlider SliderID = iota
	BoostSlider
	BrightnessSlider

	numSliders
)

func (id SliderID) String() string {
	switch id {
	case SustainedSlider:
		return "Sustained power"
	case BoostSlider:
		return "Boost power"
	case BrightnessSlider:
		return "Brightness"
	default:
		return fmt.Sprintf("slider(%d)", int(id))
	}
}

// Slider is the state of one control. Power sliders hold microwatts,
// the brightness slider holds raw device units.
type Slider struct {
	ID        SliderID
	Available bool
	Value     uint64
	Min       uint64
	Max       uint64
	Step      uint64
}

// Percent is the position of Value between Min and Max, in 0..100
func (s Slider) Percent() int {
	if !s.Available || s.Max <= s.Min {
		return 0
	}
	v := min(max(s.Value, s.Min), s.Max)
	return int(math.Round(float64(v-s.Min) * 100 / float64(s.Max-s.Min)))
}

// Label renders Value for humans
func (s Slider) Label() string {
	if !s.Available {
		return "unavailable"
	}
	if s.ID == BrightnessSlider {
		return fmt.Sprintf("%d/%d", s.Value, s.Max)
	}
	return device.Power(s.Value).String()
}

// Status is the last action or error shown by the dashboard
type Status struct {
	Text string
	Err  bool
}

// Limits are the slider ranges of the power sliders and the brightness step
type Limits struct {
	MinPower       device.Power
	MaxPower       device.Power
	PowerStep      device.Power
	BrightnessStep int // percent of max brightness
}

// DefaultLimits returns 3 W .. 30 W in 1 W steps and 5% brightness steps
func DefaultLimits() Limits {
	return Limits{
		MinPower:       3 * device.Watt,
		MaxPower:       30 * device.Watt,
		PowerStep:      device.Watt,
		BrightnessStep: 5,
	}
}

// Snapshot is a consistent copy of the model for rendering
type Snapshot struct {
	Sliders [numSliders]Slider
	Focus   SliderID
	Status  Status
}

// Model holds the slider state and talks to the devices. It has no
// knowledge of the terminal and is safe for concurrent use.
type Model struct {
	logger    *slog.Logger
	power     device.PowerCapController
	backlight device.BacklightController
	limits    Limits

	mu      sync.Mutex
	sliders [numSliders]Slider
	focus   SliderID
	status  Status
}

// NewModel creates a model for the given controllers; a nil controller
// leaves its sliders unavailable
func NewModel(pc device.PowerCapController, bl device.BacklightController, limits Limits, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		logger:    logger.With("service", "tui"),
		power:     pc,
		backlight: bl,
		limits:    limits,
	}
	for i := range m.sliders {
		m.sliders[i].ID = SliderID(i)
	}
	return m
}

// Snapshot returns a copy of the current state
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Sliders: m.sliders, Focus: m.focus, Status: m.status}
}

// Focus returns the focused slider
func (m *Model) Focus() SliderID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focus
}

// FocusNext moves focus to the next slider, wrapping around
func (m *Model) FocusNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focus = (m.focus + 1) % numSliders
}

// FocusPrev moves focus to the previous slider, wrapping around
func (m *Model) FocusPrev() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focus = (m.focus + numSliders - 1) % numSliders
}

// Refresh re-reads every device. Failures mark the slider unavailable and
// are reported in the status; they never stop the dashboard.
func (m *Model) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if err := m.refreshPower(); err != nil {
		errs = append(errs, err)
	}
	if err := m.refreshBacklight(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		m.setError(errs[0])
		return
	}
	m.status = Status{Text: "Values refreshed"}
}

func (m *Model) refreshPower() error {
	var first error
	for _, rail := range device.AllRails {
		s := &m.sliders[railSlider(rail)]
		s.Available = false
		s.Min = m.limits.MinPower.MicroWatts()
		s.Max = m.limits.MaxPower.MicroWatts()
		s.Step = m.limits.PowerStep.MicroWatts()
		if m.power == nil {
			continue
		}

		p, err := m.power.Cap(rail)
		if err != nil {
			if first == nil {
				first = fmt.Errorf("%s: %w", rail, err)
			}
			continue
		}
		s.Value = p.MicroWatts()
		s.Available = true
	}
	return first
}

func railSlider(rail device.Rail) SliderID {
	if rail == device.Boost {
		return BoostSlider
	}
	return SustainedSlider
}

func (m *Model) refreshBacklight() error {
	s := &m.sliders[BrightnessSlider]
	s.Available = false
	if m.backlight == nil {
		return nil
	}

	h, err := m.backlight.Probe()
	if err != nil {
		return fmt.Errorf("backlight: %w", err)
	}
	v, err := m.backlight.Brightness()
	if err != nil {
		return fmt.Errorf("backlight: %w", err)
	}

	s.Min = 0
	s.Max = h.MaxBrightness
	s.Step = max(1, uint64(math.Round(float64(h.MaxBrightness)*float64(m.limits.BrightnessStep)/100)))
	s.Value = v
	s.Available = true
	return nil
}

// Step moves the focused slider by n steps, clamped to its range, and
// writes the new value to the device right away
func (m *Model) Step(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sliders[m.focus]
	if !s.Available {
		m.status = Status{Text: fmt.Sprintf("%s is unavailable, press r to retry", s.ID), Err: true}
		return
	}

	delta := float64(n) * float64(s.Step)
	target := math.Round(float64(s.Value) + delta)
	target = math.Max(float64(s.Min), math.Min(float64(s.Max), target))
	m.apply(s, uint64(target))
}

// SetMin moves the focused slider to its minimum
func (m *Model) SetMin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.sliders[m.focus]; s.Available {
		m.apply(s, s.Min)
	}
}

// SetMax moves the focused slider to its maximum
func (m *Model) SetMax() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.sliders[m.focus]; s.Available {
		m.apply(s, s.Max)
	}
}

// apply writes value for slider s; the slider only moves if the write succeeds
func (m *Model) apply(s Slider, value uint64) {
	if value == s.Value {
		return
	}

	var err error
	switch s.ID {
	case SustainedSlider:
		err = m.power.SetCap(device.Sustained, device.Power(value))
	case BoostSlider:
		err = m.power.SetCap(device.Boost, device.Power(value))
	case BrightnessSlider:
		err = m.backlight.SetBrightness(value)
	}
	if err != nil {
		m.setError(fmt.Errorf("failed to set %s: %w", s.ID, err))
		return
	}

	s.Value = value
	m.sliders[s.ID] = s
	m.status = Status{Text: fmt.Sprintf("%s set to %s", s.ID, s.Label())}
}

func (m *Model) setError(err error) {
	m.logger.Warn("Device operation failed", "error", err)
	m.status = Status{Text: err.Error(), Err: true}
}
