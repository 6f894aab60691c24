// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"math"
)

// Power represents a power cap as an unsigned MicroWatt count, which is the
// unit hwmon uses for power*_cap files.
// Use functions Watts, MilliWatts and MicroWatts to get the power value as
// Watts, MilliWatts or MicroWatts respectively
type Power uint64

const (
	MicroWatt Power = 1
	MilliWatt       = 1000 * MicroWatt
	Watt            = 1000 * MilliWatt
)

// powerLimit is 2^64 microwatts, the first value Power cannot hold
const powerLimit = float64(1 << 64)

// PowerFromWatts converts a (possibly fractional) watt value to Power,
// rounding to the nearest microwatt. Negative and NaN inputs yield 0 and
// values beyond the range of Power saturate at math.MaxUint64. Use CheckWatts
// to reject such input instead.
func PowerFromWatts(w float64) Power {
	if math.IsNaN(w) || w <= 0 {
		return 0
	}
	uw := math.Round(w * float64(Watt))
	if uw >= powerLimit {
		return Power(math.MaxUint64)
	}
	return Power(uw)
}

// CheckWatts returns ErrOutOfRange unless w is a finite positive watt value
// that converts to Power without saturating
func CheckWatts(w float64) error {
	if math.IsNaN(w) || w <= 0 || math.Round(w*float64(Watt)) >= powerLimit {
		return fmt.Errorf("%w: %g W", ErrOutOfRange, w)
	}
	return nil
}

func (p Power) MicroWatts() uint64 {
	return uint64(p)
}

func (p Power) MilliWatts() float64 {
	return float64(p) / float64(MilliWatt)
}

func (p Power) Watts() float64 {
	return float64(p) / float64(Watt)
}

func (p Power) String() string {
	return fmt.Sprintf("%.2fW", p.Watts())
}
