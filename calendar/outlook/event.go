package outlook

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/guilherme-santos/calconnect"
)

type graphEmail struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID          string        `json:"id"`
	Subject     string        `json:"subject"`
	BodyPreview string        `json:"bodyPreview"`
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
	Location    struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	IsCancelled bool   `json:"isCancelled"`
	ShowAs      string `json:"showAs"`
	Organizer   struct {
		EmailAddress graphEmail `json:"emailAddress"`
	} `json:"organizer"`
	Attendees []struct {
		Status struct {
			Response string `json:"response"`
		} `json:"status"`
		EmailAddress graphEmail `json:"emailAddress"`
	} `json:"attendees"`
	Recurrence *struct {
		Pattern struct {
			Type string `json:"type"`
		} `json:"pattern"`
	} `json:"recurrence"`
	SeriesMasterID   string `json:"seriesMasterId"`
	OnlineMeeting    *struct {
		JoinURL string `json:"joinUrl"`
	} `json:"onlineMeeting"`
	OnlineMeetingURL string `json:"onlineMeetingUrl"`
	Removed          *struct {
		Reason string `json:"reason"`
	} `json:"@removed"`
}

func newEvent(ev *graphEvent, raw json.RawMessage) *calconnect.Event {
	timezone := ev.Start.TimeZone
	if timezone == "" {
		timezone = "UTC"
	}

	out := &calconnect.Event{
		ExternalID:     ev.ID,
		Summary:        ev.Subject,
		Description:    ev.BodyPreview,
		StartsAt:       parseGraphTime(ev.Start),
		EndsAt:         parseGraphTime(ev.End),
		Timezone:       timezone,
		Location:       ev.Location.DisplayName,
		MeetingURL:     meetingURL(ev),
		OrganizerEmail: ev.Organizer.EmailAddress.Address,
		IsRecurring:    ev.Recurrence != nil || ev.SeriesMasterID != "",
		Status:         eventStatus(ev),
		Raw:            raw,
	}
	if ev.Recurrence != nil {
		out.RecurrenceRule = ev.Recurrence.Pattern.Type
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, calconnect.Attendee{
			Email:          a.EmailAddress.Address,
			Name:           a.EmailAddress.Name,
			ResponseStatus: responseStatus(a.Status.Response),
			Organizer:      a.EmailAddress.Address != "" && a.EmailAddress.Address == ev.Organizer.EmailAddress.Address,
		})
	}
	return out
}

// parseGraphTime re-anchors the service's naive local datetime in the zone
// the payload names before converting to UTC. Assuming UTC outright would
// shift every event from a remote that ignores the Prefer header.
func parseGraphTime(dt graphDateTime) time.Time {
	s := dt.DateTime
	if s == "" {
		return time.Time{}
	}
	// Graph appends seven fractional digits the stdlib layout cannot carry.
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}

	loc := time.UTC
	if dt.TimeZone != "" && dt.TimeZone != "UTC" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func meetingURL(ev *graphEvent) string {
	if ev.OnlineMeeting != nil && ev.OnlineMeeting.JoinURL != "" {
		return ev.OnlineMeeting.JoinURL
	}
	return ev.OnlineMeetingURL
}

func responseStatus(native string) calconnect.ResponseStatus {
	switch native {
	case "accepted", "organizer":
		return calconnect.Accepted
	case "declined":
		return calconnect.Declined
	case "tentativelyAccepted":
		return calconnect.Tentative
	default:
		// Covers "none", "notResponded" and anything this adapter has never
		// seen; defaulting to accepted would fabricate positive responses.
		return calconnect.NeedsAction
	}
}

func eventStatus(ev *graphEvent) calconnect.EventStatus {
	switch {
	case ev.IsCancelled:
		return calconnect.StatusCancelled
	case ev.ShowAs == "tentative":
		return calconnect.StatusTentative
	default:
		return calconnect.StatusConfirmed
	}
}
