package enums

import "fmt"

// ReminderType distinguishes the kind of scheduled reminder.
type ReminderType string

const (
	ReminderTypeMedication  ReminderType = "medication"
	ReminderTypeAppointment ReminderType = "appointment"
	ReminderTypeExercise    ReminderType = "exercise"
	ReminderTypeCustom      ReminderType = "custom"
)

var validReminderTypes = []ReminderType{
	ReminderTypeMedication,
	ReminderTypeAppointment,
	ReminderTypeExercise,
	ReminderTypeCustom,
}

// IsValid reports whether the value is a known ReminderType.
func (r ReminderType) IsValid() bool {
	for _, candidate := range validReminderTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReminderType converts raw input into a ReminderType.
func ParseReminderType(value string) (ReminderType, error) {
	for _, candidate := range validReminderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reminder type %q", value)
}
