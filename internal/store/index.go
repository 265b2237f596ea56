package store

import (
	"fmt"
	"time"
)

// Strategy maps a point in time to a document-store shard name, per
// spec.md §6 "Index naming".
type Strategy interface {
	IndexName(now time.Time) string
}

// Fixed always returns the same static shard name.
type Fixed struct {
	Name string
}

// IndexName implements Strategy.
func (f Fixed) IndexName(time.Time) string { return f.Name }

// Granularity selects which time-bucket Timed rounds to.
type Granularity string

const (
	GranularityYear  Granularity = "y"
	GranularityMonth Granularity = "m"
	GranularityWeek  Granularity = "w"
	GranularityDay   Granularity = "d"
	GranularityHour  Granularity = "h"
)

// Timed rounds a reference time down to a shard name at the configured
// granularity.
type Timed struct {
	Granularity Granularity
}

// IndexName implements Strategy.
func (t Timed) IndexName(now time.Time) string {
	switch t.Granularity {
	case GranularityYear:
		return fmt.Sprintf("%04d0101000000", now.Year())
	case GranularityMonth:
		return fmt.Sprintf("%04d%02d01000000", now.Year(), int(now.Month()))
	case GranularityWeek:
		return weekIndexName(now)
	case GranularityDay:
		y, m, d := now.Date()
		return fmt.Sprintf("%04d%02d%02d000000", y, int(m), d)
	case GranularityHour:
		y, m, d := now.Date()
		return fmt.Sprintf("%04d%02d%02d%02d0000", y, int(m), d, now.Hour())
	default:
		y, m, d := now.Date()
		return fmt.Sprintf("%04d%02d%02d000000", y, int(m), d)
	}
}

// NewStrategy builds a Strategy from configuration: kind "fixed" uses
// fixedName verbatim, anything else (including "timed") buckets by
// granularity, defaulting to day-granularity on an unrecognized value.
func NewStrategy(kind, granularity, fixedName string) Strategy {
	if kind == "fixed" {
		return Fixed{Name: fixedName}
	}
	return Timed{Granularity: Granularity(granularity)}
}

// weekIndexName reproduces the reference implementation's week bucketing
// verbatim (spec.md §9 Open Question: "not a silent fix"), including its
// divergence: the original computes an ISO week number via isocalendar()
// (Monday-start, week 1 contains the year's first Thursday) but then
// resolves that week number to a concrete Sunday using Python's %U/%w
// strptime semantics (Sunday-start, week 0 is everything before the
// year's first Sunday). Those two week-numbering systems disagree on
// roughly half of all dates, so this is not a simple "one week early"
// off-by-one — it lands on whichever Sunday the %U system assigns to the
// ISO week number, which can differ from the ISO-correct Sunday in
// either direction depending on where the year's first Sunday falls.
//
// Concretely: ISO day 7 (Sunday) keeps its own ISO week number; every
// other day uses isoWeek-1. That week number is then resolved against
// isoYear's first Sunday (week_0_length days into the year) the same way
// CPython's _strptime resolves "%Y %U %w" with weekday 0, per
// kiloeyes/microservice/timed_strategy.py's get_index.
func weekIndexName(now time.Time) string {
	isoYear, isoWeek := now.ISOWeek()

	isoWeekday := int(now.Weekday()) // time.Sunday==0 ... time.Saturday==6
	if isoWeekday == 0 {
		isoWeekday = 7
	}

	weekOfYear := isoWeek - 1
	if isoWeekday == 7 {
		weekOfYear = isoWeek
	}

	jan1 := time.Date(isoYear, time.January, 1, 0, 0, 0, 0, now.Location())
	// time.Weekday() is already Sunday=0..Saturday=6, matching the
	// Sunday-start basis CPython's _strptime shifts to for %U.
	firstWeekday := int(jan1.Weekday())
	week0Length := (7 - firstWeekday) % 7

	var julian int
	if weekOfYear == 0 {
		julian = 1 - firstWeekday
	} else {
		julian = 1 + week0Length + 7*(weekOfYear-1)
	}

	sunday := jan1.AddDate(0, 0, julian-1)
	y, m, d := sunday.Date()
	return fmt.Sprintf("%04d%02d%02d000000", y, int(m), d)
}
