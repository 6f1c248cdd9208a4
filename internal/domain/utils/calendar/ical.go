package calendar

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	ics "github.com/arran4/golang-ical"
)

const (
	productID = "-//Outage Alerts//EN"
	// outageWindow is the assumed length of a timed outage. The source
	// publishes only the start.
	outageWindow = 8 * time.Hour
)

// ExportAlertsToICS converts alerts into an iCalendar document with one event
// per outage. Outages with a start time become timed events in loc; the rest
// become all-day events. Each event carries reminders one day and one hour
// ahead.
func ExportAlertsToICS(alerts []dto.Alert, loc *time.Location, now time.Time) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetXWRCalName("Scheduled power outages")
	cal.SetXWRTimezone(loc.String())

	for _, alert := range alerts {
		day, err := time.ParseInLocation(time.DateOnly, alert.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("outage %q has invalid date %q: %w", alert.Area, alert.Date, err)
		}

		e := cal.AddEvent(fmt.Sprintf("%s@outage-alerts", alert.OutageKey))
		e.SetDtStampTime(now)
		e.SetCreatedTime(now)
		e.SetModifiedAt(now)

		if start, ok := startOf(day, alert.Time, loc); ok {
			e.SetStartAt(start)
			e.SetEndAt(start.Add(outageWindow))
		} else {
			e.SetAllDayStartAt(day)
			e.SetAllDayEndAt(day.AddDate(0, 0, 1))
		}

		e.SetSummary(fmt.Sprintf("Power outage: %s", alert.Area))
		e.SetDescription(description(alert))
		e.SetLocation(alert.Area)
		e.SetStatus(ics.ObjectStatusConfirmed)
		e.SetTimeTransparency(ics.TransparencyTransparent)
		e.SetClass(ics.ClassificationPublic)
		e.SetSequence(0)

		dayAlarm := e.AddAlarm()
		dayAlarm.SetAction(ics.ActionDisplay)
		dayAlarm.AddProperty("TRIGGER;VALUE=DURATION", "-P1D")
		dayAlarm.SetDescription(fmt.Sprintf("Power outage tomorrow in %s", alert.Area))

		hourAlarm := e.AddAlarm()
		hourAlarm.SetAction(ics.ActionDisplay)
		hourAlarm.AddProperty("TRIGGER;VALUE=DURATION", "-PT1H")
		hourAlarm.SetDescription(fmt.Sprintf("Power outage in one hour in %s", alert.Area))
	}

	var buf bytes.Buffer
	if err := cal.SerializeTo(&buf); err != nil {
		return nil, fmt.Errorf("error serializing calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func startOf(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	if clock == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), true
}

func description(alert dto.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scheduled power outage in %s, %.2f km from your location.", alert.Area, alert.DistanceKm)
	if len(alert.SubAreas) > 0 {
		fmt.Fprintf(&b, "\nAffected areas: %s", strings.Join(alert.SubAreas, ", "))
	}
	return b.String()
}
