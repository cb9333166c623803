// Package ics renders events as an iCalendar (RFC 5545) feed.
package ics

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/emersion/go-ical"
)

const productID = "-//canopy-calendar//EN"

// Encode writes one VCALENDAR holding a VEVENT per event. Recurrence rules
// are passed through verbatim, never expanded.
func Encode(w io.Writer, calendarName string, events []model.EventView, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if calendarName != "" {
		cal.Props.SetText("X-WR-CALNAME", calendarName)
	}

	for _, e := range events {
		cal.Children = append(cal.Children, toVEvent(e, stamp))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// UID is stable per event so clients can update instead of duplicating.
func UID(id int64) string {
	return strconv.FormatInt(id, 10) + "@canopy-calendar"
}

func toVEvent(e model.EventView, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, UID(e.ID))
	ve.Props.SetText(ical.PropSummary, e.Name)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())

	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		ve.Props.SetText(ical.PropLocation, e.Location)
	}
	if e.Color != "" {
		ve.Props.SetText(ical.PropColor, e.Color)
	}
	if e.RecurrenceRule != nil && *e.RecurrenceRule != "" {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = strings.TrimPrefix(*e.RecurrenceRule, "RRULE:")
		ve.Props.Set(rule)
	}
	return ve
}
