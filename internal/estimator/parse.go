package estimator

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	fuelPattern = regexp.MustCompile(`(\d{1,3})\s?%`)
	// Digit groups may be split by a space, dot or comma on the cluster display.
	odometerPattern = regexp.MustCompile(`\d{1,3}(?:[ .,]\d{3})+|\d{3,7}`)
)

// ParseDashboardText extracts odometer and fuel readings from OCR text of a dashboard photo.
// Values that cannot be found are left nil.
func ParseDashboardText(text string) Estimate {
	var est Estimate

	for _, m := range fuelPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.Atoi(m[1])
		if err == nil && v >= 0 && v <= 100 {
			est.FuelPercent = &v
			break
		}
	}

	// Remove fuel figures so "85%" is not mistaken for a short odometer.
	rest := fuelPattern.ReplaceAllString(text, " ")

	best, bestLen, bestKm := -1, 0, false
	for _, loc := range odometerPattern.FindAllStringIndex(rest, -1) {
		digits := stripSeparators(rest[loc[0]:loc[1]])
		if len(digits) < 3 || len(digits) > 7 {
			continue
		}
		v, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		km := strings.HasPrefix(strings.ToLower(strings.TrimSpace(rest[loc[1]:])), "km")
		if (km && !bestKm) || (km == bestKm && len(digits) > bestLen) {
			best, bestLen, bestKm = v, len(digits), km
		}
	}
	if best >= 0 {
		est.Odometer = &best
	}
	return est
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
