// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// Service is a named component of a powerdeck invocation
type Service interface {
	Name() string
}

// Initializer is implemented by services that must be set up before anything runs
type Initializer interface {
	Service
	Init() error
}

// Runner is implemented by services that block until the user or a signal
// ends the session
type Runner interface {
	Service
	// Run blocks until ctx is canceled or the service finishes on its own
	Run(ctx context.Context) error
}

// Shutdowner is implemented by services holding resources, such as the terminal
type Shutdowner interface {
	Service
	Shutdown() error
}
