// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"

	"github.com/oklog/run"
)

// Run runs every Runner in its own goroutine. The first one to return ends
// the group: the shared context is canceled, every runner is shut down and
// the first runner's result is returned. A nil result means a clean exit,
// for example the user quitting the dashboard.
func Run(outer context.Context, logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(outer)
	defer cancel()

	var g run.Group
	for _, s := range services {
		r, ok := s.(Runner)
		if !ok {
			continue
		}

		g.Add(
			func() error {
				logger.Debug("Running service", "service", r.Name())
				return r.Run(ctx)
			},
			func(err error) {
				cancel()
				if err != nil && err != context.Canceled {
					logger.Warn("Service stopped", "service", r.Name(), "reason", err)
				}
				shutdown(logger, r)
			},
		)
	}

	return g.Run()
}
