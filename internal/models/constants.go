package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ArrivalState is the tri-state outcome of a booking's arrival check.
// On the wire it is null (unknown), true (arrived) or false (no-show).
type ArrivalState int8

const (
	ArrivalUnknown ArrivalState = iota
	ArrivalArrived
	ArrivalNoShow
)

func (a ArrivalState) String() string {
	switch a {
	case ArrivalArrived:
		return "arrived"
	case ArrivalNoShow:
		return "no_show"
	default:
		return "unknown"
	}
}

func (a ArrivalState) MarshalJSON() ([]byte, error) {
	switch a {
	case ArrivalArrived:
		return []byte("true"), nil
	case ArrivalNoShow:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (a *ArrivalState) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null", "":
		*a = ArrivalUnknown
	case "true":
		*a = ArrivalArrived
	case "false":
		*a = ArrivalNoShow
	default:
		return fmt.Errorf("invalid arrival state %s", data)
	}
	return nil
}

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// NotificationPreference selects which channels a booking is notified through.
type NotificationPreference string

const (
	PreferenceSMS   NotificationPreference = "sms"
	PreferenceEmail NotificationPreference = "email"
	PreferenceBoth  NotificationPreference = "both"
)

func (p NotificationPreference) Valid() bool {
	switch p {
	case PreferenceSMS, PreferenceEmail, PreferenceBoth:
		return true
	}
	return false
}

// Channels expands the preference into the set of channels to try.
func (p NotificationPreference) Channels() []Channel {
	switch p {
	case PreferenceSMS:
		return []Channel{ChannelSMS}
	case PreferenceEmail:
		return []Channel{ChannelEmail}
	case PreferenceBoth:
		return []Channel{ChannelSMS, ChannelEmail}
	}
	return nil
}

func (p *NotificationPreference) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*p = PreferenceBoth
		return nil
	}
	*p = NotificationPreference(s)
	return nil
}

// NotificationKind names the message a booking is being notified with.
type NotificationKind string

const (
	NotifyConfirmation NotificationKind = "confirmation"
	NotifyReminder     NotificationKind = "reminder"
	NotifyTimeAlert    NotificationKind = "time_alert"
	NotifyCancellation NotificationKind = "cancellation"
)

const (
	DefaultRestaurantName        = "My Restaurant"
	DefaultTotalSeats            = 50
	DefaultOpeningTime           = "10:00"
	DefaultClosingTime           = "22:00"
	DefaultSlotDuration          = 60
	DefaultRestaurantDescription = "Welcome to our restaurant"
	DefaultMaxSeatsPerBooking    = 100

	DefaultMaintenanceReason = "Furniture issue"
)
