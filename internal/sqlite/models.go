package sqlite

import (
	"database/sql"
	"time"

	"github.com/guilherme-santos/calconnect"
	"github.com/goccy/go-json"
)

type Connection struct {
	Provider     string
	Account      string
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	ExpiresAt    sql.NullTime `db:"expires_at"`
	SyncToken    string       `db:"sync_token"`
}

func (c Connection) Convert() *calconnect.Connection {
	conn := &calconnect.Connection{
		Provider:  c.Provider,
		Account:   c.Account,
		SyncToken: c.SyncToken,
		Credentials: calconnect.Credentials{
			AccessToken:  c.AccessToken,
			RefreshToken: c.RefreshToken,
		},
	}
	if c.ExpiresAt.Valid {
		conn.Credentials.ExpiresAt = c.ExpiresAt.Time
	}
	return conn
}

type Event struct {
	ConnectionID   string `db:"connection_id"`
	ExternalID     string `db:"external_id"`
	Summary        string
	Description    string
	StartsAt       time.Time `db:"starts_at"`
	EndsAt         time.Time `db:"ends_at"`
	Timezone       string
	Location       string
	MeetingURL     string `db:"meeting_url"`
	Attendees      string
	OrganizerEmail string `db:"organizer_email"`
	IsRecurring    bool   `db:"is_recurring"`
	RecurrenceRule string `db:"recurrence_rule"`
	Status         string
	Raw            string
}

func (e Event) Convert() (*calconnect.Event, error) {
	ev := &calconnect.Event{
		ExternalID:     e.ExternalID,
		Summary:        e.Summary,
		Description:    e.Description,
		StartsAt:       e.StartsAt.UTC(),
		EndsAt:         e.EndsAt.UTC(),
		Timezone:       e.Timezone,
		Location:       e.Location,
		MeetingURL:     e.MeetingURL,
		OrganizerEmail: e.OrganizerEmail,
		IsRecurring:    e.IsRecurring,
		RecurrenceRule: e.RecurrenceRule,
		Status:         calconnect.EventStatus(e.Status),
	}
	if e.Attendees != "" {
		if err := json.Unmarshal([]byte(e.Attendees), &ev.Attendees); err != nil {
			return nil, err
		}
	}
	if e.Raw != "" {
		ev.Raw = json.RawMessage(e.Raw)
	}
	return ev, nil
}

func newEvent(conn *calconnect.Connection, ev *calconnect.Event) (Event, error) {
	attendees, err := json.Marshal(ev.Attendees)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ConnectionID:   conn.ID(),
		ExternalID:     ev.ExternalID,
		Summary:        ev.Summary,
		Description:    ev.Description,
		StartsAt:       ev.StartsAt.UTC(),
		EndsAt:         ev.EndsAt.UTC(),
		Timezone:       ev.Timezone,
		Location:       ev.Location,
		MeetingURL:     ev.MeetingURL,
		Attendees:      string(attendees),
		OrganizerEmail: ev.OrganizerEmail,
		IsRecurring:    ev.IsRecurring,
		RecurrenceRule: ev.RecurrenceRule,
		Status:         string(ev.Status),
		Raw:            string(ev.Raw),
	}, nil
}
