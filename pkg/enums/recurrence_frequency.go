package enums

import "fmt"

// RecurrenceFrequency is the repeat cadence for recurring reminders.
type RecurrenceFrequency string

const (
	RecurrenceFrequencyNone    RecurrenceFrequency = "none"
	RecurrenceFrequencyDaily   RecurrenceFrequency = "daily"
	RecurrenceFrequencyWeekly  RecurrenceFrequency = "weekly"
	RecurrenceFrequencyMonthly RecurrenceFrequency = "monthly"
)

var validRecurrenceFrequencies = []RecurrenceFrequency{
	RecurrenceFrequencyNone,
	RecurrenceFrequencyDaily,
	RecurrenceFrequencyWeekly,
	RecurrenceFrequencyMonthly,
}

// IsValid reports whether the value is a known RecurrenceFrequency.
func (r RecurrenceFrequency) IsValid() bool {
	for _, candidate := range validRecurrenceFrequencies {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecurrenceFrequency converts raw input into a RecurrenceFrequency.
func ParseRecurrenceFrequency(value string) (RecurrenceFrequency, error) {
	for _, candidate := range validRecurrenceFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recurrence frequency %q", value)
}
