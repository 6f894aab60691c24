// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"log/slog"
)

// Init initializes services in order. When one fails, the services already
// initialized are shut down in reverse order and the init error is returned.
func Init(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.Default()
	}

	done := make([]Service, 0, len(services))
	for _, s := range services {
		i, ok := s.(Initializer)
		if !ok {
			continue
		}

		logger.Debug("Initializing service", "service", s.Name())
		if err := i.Init(); err != nil {
			for j := len(done) - 1; j >= 0; j-- {
				shutdown(logger, done[j])
			}
			return fmt.Errorf("failed to initialize %s: %w", s.Name(), err)
		}
		done = append(done, s)
	}
	return nil
}

// shutdown calls Shutdown on s if it implements Shutdowner; failures are logged only
func shutdown(logger *slog.Logger, s Service) {
	sd, ok := s.(Shutdowner)
	if !ok {
		return
	}
	logger.Debug("Shutting down service", "service", s.Name())
	if err := sd.Shutdown(); err != nil {
		logger.Warn("Service shutdown failed", "service", s.Name(), "error", err)
	}
}
