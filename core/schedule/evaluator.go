package schedule

import (
	"strings"
	"time"

	"github.com/kilianp07/autoshutdown/core/logger"
)

// Evaluator evaluates schedule tokens and logs the ones it cannot parse.
type Evaluator struct {
	log logger.Logger
}

// NewEvaluator returns an Evaluator logging to log. A nil logger discards warnings.
func NewEvaluator(log logger.Logger) *Evaluator {
	return &Evaluator{log: logger.OrNop(log)}
}

// Evaluate reports whether now is within the shutdown window of token.
func (e *Evaluator) Evaluate(token string, now time.Time) bool {
	entry := Parse(token, now)
	if inv, ok := entry.(Invalid); ok {
		e.log.Warnf("ignoring schedule entry %q: %s; expected '<start>-><end>', a weekday like 'Sunday' or a date like 'December 25'", inv.Token, inv.Reason)
	}
	return entry.Contains(now.UTC())
}

// EvaluateSet reports whether any token of a comma-separated tag value puts
// now inside a shutdown window.
func (e *Evaluator) EvaluateSet(value string, now time.Time) bool {
	for _, token := range Split(value) {
		if e.Evaluate(token, now) {
			return true
		}
	}
	return false
}

// Split returns the trimmed tokens of a tag value. Blank values yield nil.
func Split(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// IsDoNotShutdown reports whether value is exactly the DoNotShutdown token.
func IsDoNotShutdown(value string) bool {
	return strings.ToLower(strings.TrimSpace(value)) == doNotShutdown
}
