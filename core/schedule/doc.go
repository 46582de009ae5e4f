// Package schedule parses AutoShutdownSchedule tag values and tells whether a
// point in time falls inside a shutdown window.
//
// A tag value is a comma-separated list of tokens. Each token is one of:
//
//	DoNotShutdown            disables evaluation (case-insensitive)
//	<start>-><end>           a time range, e.g. 22:00->06:00 or 2026-12-24 18:00->2026-12-27 08:00
//	<weekday>                a whole day, e.g. Saturday or sat
//	<date>                   a whole calendar day, e.g. December 25 or 2026-12-25
//
// Tokens are parsed into an Entry. Parsing never fails outward: malformed
// tokens become Invalid entries which are never inside a window. All times are
// interpreted in UTC.
package schedule
