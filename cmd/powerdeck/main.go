// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
)

func main() {
	if err := newCLI(os.Stdout, os.Stderr).run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
