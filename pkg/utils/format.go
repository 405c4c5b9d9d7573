package utils

import (
	"fmt"
	"strings"
)

// FormatLapTime renders a lap time as M:SS.mmm (or SS.mmm below one minute).
// Non-positive values render as an empty string.
func FormatLapTime(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	m := int(seconds) / 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	if m > 0 {
		return fmt.Sprintf("%d:%02d.%03d", m, s, ms)
	}
	return fmt.Sprintf("%02d.%03d", s, ms)
}

// FormatSessionTimer renders remaining session time as HH:MM:SS,
// clamped at 00:00:00.
func FormatSessionTimer(seconds float64) string {
	if seconds < 0 {
		return "00:00:00"
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

var brandKeywords = []string{
	"porsche", "ferrari", "bmw", "mercedes",
	"audi", "lamborghini", "mclaren", "ford",
}

// BrandLogo maps a car screen name to the logo keyword the frontend knows.
func BrandLogo(carName string) string {
	name := strings.ToLower(carName)
	for _, brand := range brandKeywords {
		if strings.Contains(name, brand) {
			return brand
		}
	}
	return "iracing"
}
