// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/mum4k/termdash/keyboard"
	"github.com/mum4k/termdash/terminal/terminalapi"
)

// pageSteps is how many steps PgUp / PgDn move a slider
const pageSteps = 10

// HelpText lists the key bindings shown in the dashboard title
const HelpText = "Tab/↑↓: focus  ←→: adjust  PgUp/PgDn: ×10  Home/End: min/max  r: refresh  q: quit"

// HandleKey applies a key press to the model and reports whether the
// dashboard should quit
func HandleKey(m *Model, k *terminalapi.Keyboard) bool {
	switch k.Key {
	case 'q', 'Q', keyboard.KeyEsc, keyboard.KeyCtrlC:
		return true
	case 'r', 'R':
		m.Refresh()
	case keyboard.KeyTab, keyboard.KeyArrowDown:
		m.FocusNext()
	case keyboard.KeyBacktab, keyboard.KeyArrowUp:
		m.FocusPrev()
	case keyboard.KeyArrowRight:
		m.Step(1)
	case keyboard.KeyArrowLeft:
		m.Step(-1)
	case keyboard.KeyPgUp:
		m.Step(pageSteps)
	case keyboard.KeyPgDn:
		m.Step(-pageSteps)
	case keyboard.KeyHome:
		m.SetMin()
	case keyboard.KeyEnd:
		m.SetMax()
	}
	return false
}
