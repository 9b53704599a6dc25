// Package units contains helpers to convert sizes to human-readable strings.
package units

import (
	"fmt"
	"strings"
)

//nolint:gochecknoglobals
var unitPrefixes = []string{"", "K", "M", "G", "T"}

func niceNumber(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", f), "0"), ".")
}

func toDecimalUnitString(f float64, suffix string) string {
	const thousand = 1000.0

	for i := range unitPrefixes {
		if f < 0.9*thousand {
			return fmt.Sprintf("%v %v%v", niceNumber(f), unitPrefixes[i], suffix)
		}

		f /= thousand
	}

	return fmt.Sprintf("%v %v%v", niceNumber(f), unitPrefixes[len(unitPrefixes)-1], suffix)
}

// BytesString formats the given value as bytes with the appropriate suffix (KB, MB, GB, ...).
func BytesString(b int64) string {
	return toDecimalUnitString(float64(b), "B")
}
