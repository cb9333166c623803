package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	req := require.New(t)
	rule := "RRULE:FREQ=WEEKLY;BYDAY=MO,WE"
	events := []model.EventView{
		{
			ID: 1, OwnerID: "alice", Name: "standup", Location: "room, 1", Color: "#00ff00",
			Start:          time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
			End:            time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC),
			RecurrenceRule: &rule,
		},
		{
			ID: 2, OwnerID: "alice", Name: "lunch",
			Start: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	req.NoError(Encode(&buf, "alice", events, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	out := buf.String()
	req.Contains(out, "BEGIN:VCALENDAR")
	req.Contains(out, "RRULE:FREQ=WEEKLY;BYDAY=MO,WE")
	req.Contains(out, "DTSTART:20240315T090000Z")
	req.Equal(2, strings.Count(out, "BEGIN:VEVENT"))

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	req.NoError(err)
	vevents := cal.Events()
	req.Len(vevents, 2)

	uid, err := vevents[0].Props.Text(ical.PropUID)
	req.NoError(err)
	req.Equal(UID(1), uid)

	loc, err := vevents[0].Props.Text(ical.PropLocation)
	req.NoError(err)
	req.Equal("room, 1", loc)

	start, err := vevents[1].DateTimeStart(time.UTC)
	req.NoError(err)
	req.True(start.Equal(events[1].Start))
}
