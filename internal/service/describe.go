package service

import (
	"fmt"
	"strings"
	"time"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/schedule"
)

const selfChoice = "myself"

// Describe builds the stored one-line description of a scheduled action.
func Describe(actionType, fromInstitution, toInstitution string, contacts []model.Contact) string {
	switch actionType {
	case model.ActionAirtime:
		recipient := ShortName(contacts)
		if recipient == "" {
			recipient = selfChoice
		}
		return fmt.Sprintf("Buy airtime for %s from %s", recipient, orUnknown(fromInstitution))
	case model.ActionP2P:
		return fmt.Sprintf("Send money with %s to %s", orUnknown(fromInstitution), ShortName(contacts))
	case model.ActionMe2Me:
		return fmt.Sprintf("Send money with %s to %s", orUnknown(fromInstitution), orUnknown(toInstitution))
	case model.ActionRequest:
		return fmt.Sprintf("Request money from %s", ShortName(contacts))
	default:
		return "Other"
	}
}

// Title is the notification heading for an action type. Unknown types have none.
func Title(actionType string) string {
	switch actionType {
	case model.ActionP2P, model.ActionMe2Me:
		return "Time to send money"
	case model.ActionAirtime:
		return "Time to buy airtime"
	case model.ActionRequest:
		return "Time to request money"
	default:
		return ""
	}
}

// NotificationText is the body of the reminder sent when a schedule is due.
func NotificationText(record model.ScheduleRecord, contacts []model.Contact) string {
	var text string
	switch record.Type {
	case model.ActionP2P, model.ActionMe2Me:
		text = fmt.Sprintf("Your scheduled transfer is due today: %s.", record.Description)
	case model.ActionAirtime:
		text = "Your scheduled airtime purchase is due today."
	case model.ActionRequest:
		text = fmt.Sprintf("Send your scheduled request to %s today.", ShortName(contacts))
	default:
		return ""
	}
	if amount := strings.TrimSpace(record.Amount); amount != "" {
		text += fmt.Sprintf(" Amount: %s.", amount)
	}
	if note := strings.TrimSpace(record.Note); note != "" {
		text += fmt.Sprintf(" Note: %s", note)
	}
	return text
}

// HumanFrequency renders a frequency for lists; one-off schedules show their date.
func HumanFrequency(freq schedule.Frequency, start time.Time) string {
	switch freq {
	case schedule.Once:
		return start.Format("2 Jan 2006")
	case schedule.Daily:
		return "Daily"
	case schedule.Weekly:
		return "Weekly"
	case schedule.Biweekly:
		return "Every two weeks"
	case schedule.Monthly:
		return "Monthly"
	default:
		return freq.String()
	}
}

// ShortName summarizes a recipient list: "Ann", "Ann and Bob", "Ann and 2 others".
func ShortName(contacts []model.Contact) string {
	switch len(contacts) {
	case 0:
		return ""
	case 1:
		return contacts[0].DisplayName()
	case 2:
		return contacts[0].DisplayName() + " and " + contacts[1].DisplayName()
	default:
		return fmt.Sprintf("%s and %d others", contacts[0].DisplayName(), len(contacts)-1)
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return "your account"
}
