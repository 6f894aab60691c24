// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/powerdeck/powerdeck/internal/device"
)

func newPowerCaps(sustained, boost device.Power) *device.MockPowerCaps {
	pc := &device.MockPowerCaps{}
	pc.On("Cap", device.Sustained).Return(sustained, nil)
	pc.On("Cap", device.Boost).Return(boost, nil)
	return pc
}

func newBacklight(value, maxBrightness uint64) *device.MockBacklight {
	bl := &device.MockBacklight{}
	bl.On("Probe").Return(&device.BacklightHandle{Name: "amdgpu_bl0", MaxBrightness: maxBrightness}, nil)
	bl.On("Brightness").Return(value, nil)
	return bl
}

func TestModel_Refresh(t *testing.T) {
	pc := newPowerCaps(15*device.Watt, 20*device.Watt)
	bl := newBacklight(128, 255)

	m := NewModel(pc, bl, DefaultLimits(), nil)
	m.Refresh()
	snap := m.Snapshot()

	sustained := snap.Sliders[SustainedSlider]
	assert.True(t, sustained.Available)
	assert.Equal(t, uint64(15_000_000), sustained.Value)
	assert.Equal(t, uint64(3_000_000), sustained.Min)
	assert.Equal(t, uint64(30_000_000), sustained.Max)
	assert.Equal(t, uint64(1_000_000), sustained.Step)

	boost := snap.Sliders[BoostSlider]
	assert.True(t, boost.Available)
	assert.Equal(t, uint64(20_000_000), boost.Value)

	brightness := snap.Sliders[BrightnessSlider]
	assert.True(t, brightness.Available)
	assert.Equal(t, uint64(128), brightness.Value)
	assert.Equal(t, uint64(255), brightness.Max)
	assert.Equal(t, uint64(13), brightness.Step, "5% of 255 rounds to 13")

	assert.Equal(t, SustainedSlider, snap.Focus)
	assert.Equal(t, Status{Text: "Values refreshed"}, snap.Status)
	pc.AssertExpectations(t)
	bl.AssertExpectations(t)
}

func TestModel_RefreshErrors(t *testing.T) {
	pc := &device.MockPowerCaps{}
	pc.On("Cap", device.Sustained).Return(device.Power(0), device.ErrEmptyDirectory)
	pc.On("Cap", device.Boost).Return(7*device.Watt, nil)

	bl := &device.MockBacklight{}
	bl.On("Probe").Return(nil, device.ErrNotFound)

	m := NewModel(pc, bl, DefaultLimits(), nil)
	m.Refresh()
	snap := m.Snapshot()

	assert.False(t, snap.Sliders[SustainedSlider].Available)
	assert.True(t, snap.Sliders[BoostSlider].Available)
	assert.False(t, snap.Sliders[BrightnessSlider].Available)
	assert.True(t, snap.Status.Err)
	assert.Contains(t, snap.Status.Text, "sustained")
	assert.Contains(t, snap.Status.Text, "empty directory")
}

func TestModel_RefreshRecovers(t *testing.T) {
	pc := &device.MockPowerCaps{}
	pc.On("Cap", device.Sustained).Return(device.Power(0), device.ErrNotFound).Once()
	pc.On("Cap", device.Sustained).Return(9*device.Watt, nil)
	pc.On("Cap", device.Boost).Return(9*device.Watt, nil)

	m := NewModel(pc, nil, DefaultLimits(), nil)
	m.Refresh()
	require.False(t, m.Snapshot().Sliders[SustainedSlider].Available)

	m.Refresh()
	snap := m.Snapshot()
	assert.True(t, snap.Sliders[SustainedSlider].Available)
	assert.False(t, snap.Status.Err)
}

func TestModel_DisabledDevices(t *testing.T) {
	m := NewModel(nil, nil, DefaultLimits(), nil)
	m.Refresh()
	snap := m.Snapshot()

	for _, s := range snap.Sliders {
		assert.False(t, s.Available, s.ID.String())
		assert.Equal(t, "unavailable", s.Label())
		assert.Equal(t, 0, s.Percent())
	}
	assert.False(t, snap.Status.Err)

	m.Step(1)
	snap = m.Snapshot()
	assert.True(t, snap.Status.Err)
	assert.Contains(t, snap.Status.Text, "Sustained power is unavailable")
}

func TestModel_Focus(t *testing.T) {
	m := NewModel(nil, nil, DefaultLimits(), nil)

	assert.Equal(t, SustainedSlider, m.Focus())
	m.FocusNext()
	assert.Equal(t, BoostSlider, m.Focus())
	m.FocusNext()
	assert.Equal(t, BrightnessSlider, m.Focus())
	m.FocusNext()
	assert.Equal(t, SustainedSlider, m.Focus(), "focus wraps forward")

	m.FocusPrev()
	assert.Equal(t, BrightnessSlider, m.Focus(), "focus wraps backward")
	m.FocusPrev()
	assert.Equal(t, BoostSlider, m.Focus())
}

func TestModel_StepPower(t *testing.T) {
	tt := []struct {
		name    string
		current device.Power
		steps   int
		want    device.Power
	}{
		{"one up", 15 * device.Watt, 1, 16 * device.Watt},
		{"one down", 15 * device.Watt, -1, 14 * device.Watt},
		{"page up", 15 * device.Watt, 10, 25 * device.Watt},
		{"clamped at min", 5 * device.Watt, -10, 3 * device.Watt},
		{"clamped at max", 25 * device.Watt, 10, 30 * device.Watt},
		{"above range moves into range", 35 * device.Watt, -1, 30 * device.Watt},
		{"below range moves into range", 1 * device.Watt, 1, 3 * device.Watt},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			pc := newPowerCaps(tc.current, tc.current)
			pc.On("SetCap", device.Boost, tc.want).Return(nil).Once()

			m := NewModel(pc, nil, DefaultLimits(), nil)
			m.Refresh()
			m.FocusNext()
			m.Step(tc.steps)

			snap := m.Snapshot()
			assert.Equal(t, tc.want.MicroWatts(), snap.Sliders[BoostSlider].Value)
			assert.Equal(t, tc.current.MicroWatts(), snap.Sliders[SustainedSlider].Value)
			assert.False(t, snap.Status.Err)
			assert.Equal(t, "Boost power set to "+tc.want.String(), snap.Status.Text)
			pc.AssertExpectations(t)
		})
	}
}

func TestModel_StepAtLimitDoesNotWrite(t *testing.T) {
	pc := newPowerCaps(30*device.Watt, 3*device.Watt)

	m := NewModel(pc, nil, DefaultLimits(), nil)
	m.Refresh()
	m.Step(1)
	m.FocusNext()
	m.Step(-1)

	pc.AssertNotCalled(t, "SetCap")
	assert.Equal(t, "Values refreshed", m.Snapshot().Status.Text)
}

func TestModel_StepBrightness(t *testing.T) {
	bl := newBacklight(128, 255)
	bl.On("SetBrightness", uint64(141)).Return(nil).Once()
	bl.On("SetBrightness", uint64(255)).Return(nil).Once()
	bl.On("SetBrightness", uint64(0)).Return(nil).Once()

	m := NewModel(nil, bl, DefaultLimits(), nil)
	m.Refresh()
	m.FocusPrev()
	require.Equal(t, BrightnessSlider, m.Focus())

	m.Step(1)
	assert.Equal(t, uint64(141), m.Snapshot().Sliders[BrightnessSlider].Value)
	assert.Equal(t, "Brightness set to 141/255", m.Snapshot().Status.Text)

	m.Step(pageSteps)
	assert.Equal(t, uint64(255), m.Snapshot().Sliders[BrightnessSlider].Value)

	m.SetMin()
	assert.Equal(t, uint64(0), m.Snapshot().Sliders[BrightnessSlider].Value)
	bl.AssertExpectations(t)
}

func TestModel_SetMinMax(t *testing.T) {
	pc := newPowerCaps(10*device.Watt, 10*device.Watt)
	pc.On("SetCap", device.Sustained, 30*device.Watt).Return(nil).Once()
	pc.On("SetCap", device.Sustained, 3*device.Watt).Return(nil).Once()

	m := NewModel(pc, nil, DefaultLimits(), nil)
	m.Refresh()
	m.SetMax()
	assert.Equal(t, 100, m.Snapshot().Sliders[SustainedSlider].Percent())
	m.SetMin()
	assert.Equal(t, 0, m.Snapshot().Sliders[SustainedSlider].Percent())
	pc.AssertExpectations(t)
}

func TestModel_WriteFailureKeepsValue(t *testing.T) {
	pc := newPowerCaps(15*device.Watt, 20*device.Watt)
	pc.On("SetCap", device.Sustained, 16*device.Watt).Return(errors.New("permission denied"))

	m := NewModel(pc, nil, DefaultLimits(), nil)
	m.Refresh()
	m.Step(1)

	snap := m.Snapshot()
	assert.Equal(t, uint64(15_000_000), snap.Sliders[SustainedSlider].Value)
	assert.True(t, snap.Status.Err)
	assert.Equal(t, "failed to set Sustained power: permission denied", snap.Status.Text)
}

func TestModel_CustomLimits(t *testing.T) {
	pc := newPowerCaps(10*device.Watt, 10*device.Watt)
	pc.On("SetCap", device.Sustained, 12500*device.MilliWatt).Return(nil).Once()

	limits := Limits{
		MinPower:       5 * device.Watt,
		MaxPower:       15 * device.Watt,
		PowerStep:      2500 * device.MilliWatt,
		BrightnessStep: 10,
	}
	m := NewModel(pc, nil, limits, nil)
	m.Refresh()
	m.Step(1)

	s := m.Snapshot().Sliders[SustainedSlider]
	assert.Equal(t, uint64(12_500_000), s.Value)
	assert.Equal(t, 75, s.Percent())
	pc.AssertExpectations(t)
}

func TestSlider(t *testing.T) {
	power := Slider{ID: BoostSlider, Available: true, Value: 16_500_000, Min: 3_000_000, Max: 30_000_000, Step: 1_000_000}
	assert.Equal(t, 50, power.Percent())
	assert.Equal(t, "16.50W", power.Label())

	brightness := Slider{ID: BrightnessSlider, Available: true, Value: 0, Max: 3000, Step: 150}
	assert.Equal(t, 0, brightness.Percent())
	assert.Equal(t, "0/3000", brightness.Label())

	empty := Slider{ID: BrightnessSlider, Available: true}
	assert.Equal(t, 0, empty.Percent(), "zero range")

	assert.Equal(t, "slider(7)", SliderID(7).String())
}
