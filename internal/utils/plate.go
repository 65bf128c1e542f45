package utils

import (
	"strings"
	"unicode"
)

// NormalizePlate uppercases a registration and strips all whitespace.
func NormalizePlate(plate string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, plate)
}

// VerifyPlate reports whether a scanned or typed registration matches the expected one.
// Only exact equality after normalization counts; there is no fuzzy matching. A scan that
// is empty after normalization never matches.
func VerifyPlate(scanned, expected string) bool {
	s := NormalizePlate(scanned)
	if s == "" {
		return false
	}
	return s == NormalizePlate(expected)
}
