package governor

import (
	"fmt"
	"math"
	"time"
)

// Polling interval bounds. Anything below MinPollInterval hammers the
// upstream APIs for no benefit; anything above MaxPollInterval leaves the
// dashboard stale for longer than a working day.
const (
	MinPollInterval = 30 * time.Second
	MaxPollInterval = 24 * time.Hour
)

// DetectBusinessHours reports whether now falls on Monday through Friday
// between 09:00 and 18:00 local time, both boundaries inclusive. 08:59 and
// 18:01 are outside business hours.
func DetectBusinessHours(now time.Time) bool {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	return minute >= 9*60 && minute <= 18*60
}

// DynamicInterval computes the next poll delay from quota pressure and time
// of day. The usage multiplier backs off as the quota fills; business hours
// add a further 1.2x because interactive users are already generating API
// traffic of their own. The result is clamped to the polling bounds.
//
// Client-activity acceleration is deliberately not part of this formula:
// callers multiply ActivityAccelerationFactor in themselves, and only in
// contexts where visibility signals exist at all.
func DynamicInterval(usagePercent float64, base time.Duration, businessHours bool) time.Duration {
	var multiplier float64
	switch {
	case usagePercent < 50:
		multiplier = 1
	case usagePercent < 75:
		multiplier = 1.5
	case usagePercent < 90:
		multiplier = 2
	default:
		multiplier = 4
	}

	interval := float64(base) * multiplier
	if businessHours {
		ms := math.Round(interval * 1.2 / float64(time.Millisecond))
		interval = ms * float64(time.Millisecond)
	}
	return ClampInterval(time.Duration(interval))
}

// ActivityAccelerationFactor stretches the poll interval when nobody is
// looking. Background polling slows 3x, a hidden tab 2x, a visible but idle
// tab 1.5x. An active user polls at full rate.
func ActivityAccelerationFactor(tabVisible, userActive, inBackground bool) float64 {
	switch {
	case inBackground:
		return 3
	case !tabVisible:
		return 2
	case !userActive:
		return 1.5
	default:
		return 1
	}
}

// ClampInterval bounds an interval to [MinPollInterval, MaxPollInterval].
// Negative values clamp to the minimum.
func ClampInterval(d time.Duration) time.Duration {
	if d < MinPollInterval {
		return MinPollInterval
	}
	if d > MaxPollInterval {
		return MaxPollInterval
	}
	return d
}

// FormatInterval renders an interval at the coarsest whole unit: seconds
// under a minute, minutes under an hour, hours beyond that. There is no day
// unit; long intervals keep accumulating hours. Negative and sub-second
// values render as "0s".
func FormatInterval(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	default:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
}
