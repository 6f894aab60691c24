// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"github.com/stretchr/testify/mock"
)

// MockPowerCaps is a testify mock of PowerCapController
type MockPowerCaps struct {
	mock.Mock
}

var _ PowerCapController = (*MockPowerCaps)(nil)

func (m *MockPowerCaps) Rails() ([]RailHandle, error) {
	args := m.Called()
	if h := args.Get(0); h != nil {
		return h.([]RailHandle), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPowerCaps) Cap(rail Rail) (Power, error) {
	args := m.Called(rail)
	return args.Get(0).(Power), args.Error(1)
}

func (m *MockPowerCaps) SetCap(rail Rail, p Power) error {
	args := m.Called(rail, p)
	return args.Error(0)
}

// MockBacklight is a testify mock of BacklightController
type MockBacklight struct {
	mock.Mock
}

var _ BacklightController = (*MockBacklight)(nil)

func (m *MockBacklight) Probe() (*BacklightHandle, error) {
	args := m.Called()
	if h := args.Get(0); h != nil {
		return h.(*BacklightHandle), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBacklight) Brightness() (uint64, error) {
	args := m.Called()
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockBacklight) SetBrightness(value uint64) error {
	args := m.Called(value)
	return args.Error(0)
}
