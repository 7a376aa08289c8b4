package zoom

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/guilherme-santos/calconnect"
)

// Meeting types as reported by the remote; 3 and 8 are the recurring kinds.
const (
	meetingTypeRecurringNoFixed = 3
	meetingTypeRecurringFixed   = 8
)

type meeting struct {
	UUID      string `json:"uuid"`
	ID        int64  `json:"id"`
	HostID    string `json:"host_id"`
	HostEmail string `json:"host_email"`
	Topic     string `json:"topic"`
	Agenda    string `json:"agenda"`
	Type      int    `json:"type"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Timezone  string `json:"timezone"`
	JoinURL   string `json:"join_url"`
}

type registrant struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Status    string `json:"status"`
}

func newEvent(m *meeting, raw json.RawMessage, hostEmail string) *calconnect.Event {
	startsAt, _ := time.Parse(time.RFC3339, m.StartTime)
	startsAt = startsAt.UTC()

	timezone := m.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	ev := &calconnect.Event{
		ExternalID:     strconv.FormatInt(m.ID, 10),
		Summary:        m.Topic,
		Description:    m.Agenda,
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(time.Duration(m.Duration) * time.Minute),
		Timezone:       timezone,
		MeetingURL:     m.JoinURL,
		OrganizerEmail: hostEmail,
		IsRecurring:    m.Type == meetingTypeRecurringNoFixed || m.Type == meetingTypeRecurringFixed,
		Status:         calconnect.StatusConfirmed,
		Raw:            raw,
	}
	if hostEmail != "" {
		ev.Attendees = append(ev.Attendees, calconnect.Attendee{
			Email:          hostEmail,
			ResponseStatus: calconnect.Accepted,
			Organizer:      true,
		})
	}
	return ev
}

func newAttendee(r registrant) calconnect.Attendee {
	name := r.FirstName
	if r.LastName != "" {
		if name != "" {
			name += " "
		}
		name += r.LastName
	}

	status := calconnect.NeedsAction
	if r.Status == "approved" {
		status = calconnect.Accepted
	}

	return calconnect.Attendee{
		Email:          r.Email,
		Name:           name,
		ResponseStatus: status,
	}
}
