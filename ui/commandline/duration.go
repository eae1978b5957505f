// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"time"
)

// FormatDuration pretty prints duration without a long list of decimal points: durations are
// rounded to 3 significant digits of their largest unit.
func FormatDuration(d time.Duration) string {
	var unit time.Duration
	switch abs := max(d, -d); {
	case abs >= time.Minute:
		return d.Round(time.Second).String()
	case abs >= time.Second:
		unit = time.Second
	case abs >= time.Millisecond:
		unit = time.Millisecond
	case abs >= time.Microsecond:
		unit = time.Microsecond
	default:
		return d.String()
	}
	// Keep 2 decimal places of the unit.
	return d.Round(unit / 100).String()
}
