package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// RangeSeparator splits the start and end of a time range token.
const RangeSeparator = "->"

const doNotShutdown = "donotshutdown"

var errEmpty = errors.New("empty date-time")

// Layouts holding only a clock time. They are anchored on the evaluation day.
var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04PM",
	"3:04 PM",
	"3:04:05PM",
	"3:04:05 PM",
	"3PM",
	"3 PM",
}

// Layouts carrying a full date, optionally with a time.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday, January 2, 2006",
	"January 2, 2006 15:04",
	"January 2 2006 15:04",
	"Jan 2 2006 15:04",
}

// Layouts with a month and day but no year. The year of the evaluation day applies.
var yearlessLayouts = []string{
	"January 2",
	"Jan 2",
	"2 January",
	"2 Jan",
	"January 2 15:04",
	"Jan 2 15:04",
	"January 2 3:04 PM",
	"Jan 2 3:04 PM",
	"1/2",
	"1/2 15:04",
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Parse turns one token into an Entry relative to now. It never panics and
// never returns an error: malformed input yields Invalid.
func Parse(token string, now time.Time) (e Entry) {
	now = now.UTC()
	token = strings.TrimSpace(token)
	defer func() {
		if r := recover(); r != nil {
			e = Invalid{Token: token, Reason: fmt.Sprint(r)}
		}
	}()
	if token == "" || strings.ToLower(token) == doNotShutdown {
		return DoNotShutdown{}
	}
	if strings.Contains(token, RangeSeparator) {
		return parseRange(token, now)
	}
	return parseDay(token, now)
}

func parseRange(token string, now time.Time) Entry {
	parts := strings.Split(token, RangeSeparator)
	if len(parts) != 2 {
		return Invalid{Token: token, Reason: fmt.Sprintf("expected <start>%s<end>, got %d parts", RangeSeparator, len(parts))}
	}
	start, err := parseDateTime(parts[0], now)
	if err != nil {
		return Invalid{Token: token, Reason: fmt.Sprintf("start: %v", err)}
	}
	end, err := parseDateTime(parts[1], now)
	if err != nil {
		return Invalid{Token: token, Reason: fmt.Sprintf("end: %v", err)}
	}
	if start.After(end) {
		// The range crosses midnight. Before midnight the end belongs to
		// tomorrow, after midnight the start belongs to yesterday.
		midnight := startOfDay(now).AddDate(0, 0, 1)
		if now.After(start) && now.Before(midnight) {
			end = end.AddDate(0, 0, 1)
		} else {
			start = start.AddDate(0, 0, -1)
		}
	}
	return TimeRange{Start: start, End: end}
}

func parseDay(token string, now time.Time) Entry {
	if wd, ok := weekdays[strings.ToLower(token)]; ok {
		if wd != now.Weekday() {
			return NoMatch{Token: token}
		}
		return fullDay(now)
	}
	t, err := parseDateTime(token, now)
	if err != nil {
		return Invalid{Token: token, Reason: err.Error()}
	}
	return fullDay(t)
}

func fullDay(t time.Time) FullDay {
	start := startOfDay(t)
	return FullDay{Start: start, End: start.Add(24*time.Hour - time.Second)}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseDateTime accepts clock times, dates with or without a year, and falls
// back to dateparse for anything else. Results are in UTC.
func parseDateTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	// Month names match case-insensitively; AM/PM only in upper case.
	up := strings.ToUpper(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, up); err == nil {
			return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, up, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, up); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date-time %q", s)
	}
	return t.UTC(), nil
}
