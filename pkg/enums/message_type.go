package enums

import "fmt"

// MessageType classifies chat message payloads.
type MessageType string

const (
	MessageTypeText         MessageType = "text"
	MessageTypeImage        MessageType = "image"
	MessageTypeFile         MessageType = "file"
	MessageTypeVoice        MessageType = "voice"
	MessageTypeSystem       MessageType = "system"
	MessageTypePrescription MessageType = "prescription"
	MessageTypeAppointment  MessageType = "appointment"
)

var validMessageTypes = []MessageType{
	MessageTypeText,
	MessageTypeImage,
	MessageTypeFile,
	MessageTypeVoice,
	MessageTypeSystem,
	MessageTypePrescription,
	MessageTypeAppointment,
}

// IsValid reports whether the value is a known MessageType.
func (m MessageType) IsValid() bool {
	for _, candidate := range validMessageTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMessageType converts raw input into a MessageType.
func ParseMessageType(value string) (MessageType, error) {
	for _, candidate := range validMessageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid message type %q", value)
}
