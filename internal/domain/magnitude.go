package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingMagnitude = errors.New("at least one of ms or mw is required")
	ErrInvalidDate      = errors.New("event date must be DDMMYYYY")
)

type linear struct{ a, b float64 }

// magnitudePeriod holds the Ms→Mw regressions calibrated for one era of
// instrumentation, split at Ms 7.
type magnitudePeriod struct {
	start, end time.Time
	ge7, lt7   linear
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var magnitudePeriods = []magnitudePeriod{
	{start: day(1900, 1, 1), end: day(1965, 12, 31), ge7: linear{1.06, -0.58}, lt7: linear{0.74, 1.64}},
	{start: day(1966, 1, 1), end: day(1975, 12, 31), ge7: linear{1.05, -0.90}, lt7: linear{0.62, 2.13}},
	{start: day(1976, 1, 1), end: day(2015, 12, 31), ge7: linear{1.28, -2.42}, lt7: linear{0.86, 0.59}},
}

// ParseEventDate parses a DDMMYYYY date, ignoring '/' and '-' separators.
func ParseEventDate(s string) (time.Time, error) {
	s = strings.NewReplacer("/", "", "-", "").Replace(strings.TrimSpace(s))
	if len(s) != 8 || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[2:4])
	y, _ := strconv.Atoi(s[4:])

	t := day(y, time.Month(m), d)
	if t.Day() != d || int(t.Month()) != m || t.Year() != y {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, s)
	}
	return t, nil
}

func periodFor(date string) (magnitudePeriod, error) {
	t, err := ParseEventDate(date)
	if err != nil {
		return magnitudePeriod{}, err
	}
	for _, p := range magnitudePeriods {
		if !t.Before(p.start) && !t.After(p.end) {
			return p, nil
		}
	}
	return magnitudePeriods[len(magnitudePeriods)-1], nil
}

// MsToMw converts surface-wave to moment magnitude for an event date.
func MsToMw(ms float64, date string) (float64, error) {
	p, err := periodFor(date)
	if err != nil {
		return 0, err
	}
	c := p.lt7
	if ms >= 7 {
		c = p.ge7
	}
	return c.a*ms + c.b, nil
}

// MwToMs inverts MsToMw: the Ms ≥ 7 branch is used when its inverse lands
// at or above 7.
func MwToMs(mw float64, date string) (float64, error) {
	p, err := periodFor(date)
	if err != nil {
		return 0, err
	}
	if ms := (mw - p.ge7.b) / p.ge7.a; ms >= 7 {
		return ms, nil
	}
	return (mw - p.lt7.b) / p.lt7.a, nil
}

// ConvertMagnitude completes a magnitude pair. Values ≤ 0 count as missing.
func ConvertMagnitude(ms, mw float64, date string) (Magnitudes, error) {
	switch {
	case ms > 0 && mw > 0:
		return Magnitudes{Ms: ms, Mw: mw}, nil
	case ms > 0:
		mw, err := MsToMw(ms, date)
		if err != nil {
			return Magnitudes{}, fmt.Errorf("derive mw: %w", err)
		}
		return Magnitudes{Ms: ms, Mw: mw}, nil
	case mw > 0:
		ms, err := MwToMs(mw, date)
		if err != nil {
			return Magnitudes{}, fmt.Errorf("derive ms: %w", err)
		}
		return Magnitudes{Ms: ms, Mw: mw}, nil
	default:
		return Magnitudes{}, ErrMissingMagnitude
	}
}
