package api

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/schedule"
	"scheduled-payments/internal/service"
)

const productID = "-//scheduled-payments//schedules//EN"

// BuildCalendar exports schedules as all-day recurring events. Records that do
// not convert to a valid schedule are left out.
func BuildCalendar(records []model.ScheduleRecord, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, record := range records {
		sched, err := service.ToSchedule(record)
		if err != nil {
			continue
		}
		event := cal.AddEvent(fmt.Sprintf("schedule-%d@scheduled-payments", record.ID))
		event.SetDtStampTime(stamp)
		event.SetSummary(record.Description)
		if desc := service.NotificationText(record, nil); desc != "" {
			event.SetDescription(desc)
		}
		event.SetAllDayStartAt(sched.Start())
		event.SetAllDayEndAt(sched.Start().AddDate(0, 0, 1))
		if rule := RecurrenceRule(sched); rule != "" {
			event.SetProperty(ics.ComponentPropertyRrule, rule)
		}
	}
	return cal
}

// RecurrenceRule renders the RFC 5545 RRULE of a schedule, empty for one-offs.
// Monthly anchors past the 28th select the last existing day up to the anchor,
// so short months fire on their final day. Biweekly uses a plain two-week
// interval, which differs from week-number parity only after 53-week years.
func RecurrenceRule(s schedule.Schedule) string {
	var parts []string
	switch s.Frequency() {
	case schedule.Daily:
		parts = append(parts, "FREQ=DAILY")
	case schedule.Weekly:
		parts = append(parts, "FREQ=WEEKLY")
	case schedule.Biweekly:
		parts = append(parts, "FREQ=WEEKLY", "INTERVAL=2")
	case schedule.Monthly:
		parts = append(parts, "FREQ=MONTHLY")
		if anchor := s.Start().Day(); anchor > 28 {
			days := make([]string, 0, anchor-27)
			for d := 28; d <= anchor; d++ {
				days = append(days, fmt.Sprint(d))
			}
			parts = append(parts, "BYMONTHDAY="+strings.Join(days, ","), "BYSETPOS=-1")
		}
	default:
		return ""
	}
	if end, ok := s.End(); ok {
		parts = append(parts, "UNTIL="+end.Format("20060102"))
	}
	return strings.Join(parts, ";")
}
