package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeOfDayLayout is how start and end times are entered.
const TimeOfDayLayout = "3:04 PM"

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FuelCostFor multiplies the per-km rate by the travelled distance.
func FuelCostFor(perKm float64, distance string) float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(distance), 64)
	if err != nil {
		return 0
	}
	return round2(perKm * d)
}

// HoursBetween returns the decimal hours from start to end. An end before
// the start is taken to be on the next day.
func HoursBetween(start, end string) float64 {
	s, err := time.Parse(TimeOfDayLayout, strings.TrimSpace(start))
	if err != nil {
		return 0
	}
	e, err := time.Parse(TimeOfDayLayout, strings.TrimSpace(end))
	if err != nil {
		return 0
	}
	d := e.Sub(s)
	if d < 0 {
		d += 24 * time.Hour
	}
	return round2(d.Hours())
}
