package reminders

import (
	"time"

	"github.com/carenest/carenest-backend/pkg/enums"
)

// NextOccurrence advances a schedule one recurrence step. Returns the
// zero time for non-recurring reminders. Intervals below one are
// treated as one.
func NextOccurrence(from time.Time, freq enums.RecurrenceFrequency, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch freq {
	case enums.RecurrenceFrequencyDaily:
		return from.AddDate(0, 0, interval)
	case enums.RecurrenceFrequencyWeekly:
		return from.AddDate(0, 0, 7*interval)
	case enums.RecurrenceFrequencyMonthly:
		return from.AddDate(0, interval, 0)
	default:
		return time.Time{}
	}
}
