package guardrail

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/huntql/internal/qerr"
)

// ValidateLimit accepts n when 0 < n <= max. It never clamps: an out-of-range
// limit is a LimitExceededError.
func ValidateLimit(n, max int) (int, error) {
	if n <= 0 {
		return 0, qerr.New(qerr.KindLimitExceeded, "limit must be positive, got %d", n).
			WithDetail("max", strconv.Itoa(max))
	}
	if n > max {
		return 0, qerr.New(qerr.KindLimitExceeded, "limit %d exceeds maximum %d", n, max).
			WithDetail("max", strconv.Itoa(max))
	}
	return n, nil
}

var timeWindowPattern = regexp.MustCompile(`^(\d+)([hHdD])$`)

// NormalizeTimeWindow parses "<integer><unit>" with unit h or d into a
// duration. "24h" and "1d" yield the same value. Free-form phrases, zero and
// values that overflow a time.Duration are InvalidTimeWindowErrors.
func NormalizeTimeWindow(text string) (time.Duration, error) {
	m := timeWindowPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, qerr.New(qerr.KindInvalidTimeWindow, "time window %q must look like 24h or 7d", text)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, qerr.Wrap(qerr.KindInvalidTimeWindow, err, "time window %q is out of range", text)
	}
	if n == 0 {
		return 0, qerr.New(qerr.KindInvalidTimeWindow, "time window %q must be positive", text)
	}

	unit := time.Hour
	if strings.EqualFold(m[2], "d") {
		unit = 24 * time.Hour
	}
	if n > int64(math.MaxInt64/unit) {
		return 0, qerr.New(qerr.KindInvalidTimeWindow, "time window %q is out of range", text)
	}
	return time.Duration(n) * unit, nil
}

// FormatTimeWindow renders d in the largest whole unit NormalizeTimeWindow
// accepts: days when divisible by 24h, otherwise hours.
func FormatTimeWindow(d time.Duration) string {
	if d > 0 && d%(24*time.Hour) == 0 {
		return strconv.FormatInt(int64(d/(24*time.Hour)), 10) + "d"
	}
	return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
}
