// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"sync"
)

// journal records lifecycle calls across services in the order they happen
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(ev string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type named struct {
	name string
	j    *journal
}

func (n *named) Name() string { return n.name }

type initOnly struct {
	named
	err error
}

func (s *initOnly) Init() error {
	s.j.add("init:" + s.name)
	return s.err
}

type initShutdown struct {
	initOnly
	shutdownErr error
}

func (s *initShutdown) Shutdown() error {
	s.j.add("shutdown:" + s.name)
	return s.shutdownErr
}

type runOnly struct {
	named
	run func(ctx context.Context) error
}

func (s *runOnly) Run(ctx context.Context) error {
	s.j.add("run:" + s.name)
	return s.run(ctx)
}

type runShutdown struct {
	runOnly
}

func (s *runShutdown) Shutdown() error {
	s.j.add("shutdown:" + s.name)
	return nil
}

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
