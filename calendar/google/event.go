package google

import (
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/guilherme-santos/calconnect"
)

// conferenceURL matches join links for the conferencing services we know
// about inside free-text description/location fields.
var conferenceURL = regexp.MustCompile(`https://(?:[a-z0-9-]+\.)*(?:meet\.google\.com|zoom\.us|teams\.microsoft\.com)/[^\s<>"']+`)

func newEvent(item *calendar.Event) *calconnect.Event {
	startsAt, timezone := parseWhen(item.Start)
	endsAt, _ := parseWhen(item.End)

	// The typed client already decoded the page, so re-marshal the item to
	// keep the provider record available to callers.
	raw, _ := item.MarshalJSON()

	ev := &calconnect.Event{
		ExternalID:     item.Id,
		Summary:        item.Summary,
		Description:    item.Description,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		Timezone:       timezone,
		Location:       item.Location,
		MeetingURL:     meetingURL(item),
		IsRecurring:    item.RecurringEventId != "" || len(item.Recurrence) > 0,
		RecurrenceRule: recurrenceRule(item.Recurrence),
		Status:         eventStatus(item.Status),
		Raw:            raw,
	}
	if item.Organizer != nil {
		ev.OrganizerEmail = item.Organizer.Email
	}
	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, calconnect.Attendee{
			Email:          a.Email,
			Name:           a.DisplayName,
			ResponseStatus: responseStatus(a.ResponseStatus),
			Self:           a.Self,
			Organizer:      a.Organizer,
		})
	}
	return ev
}

// parseWhen resolves a start/end to an instant: dateTime when present,
// otherwise the all-day date anchored at midnight UTC.
func parseWhen(when *calendar.EventDateTime) (time.Time, string) {
	if when == nil {
		return time.Time{}, "UTC"
	}
	timezone := when.TimeZone
	if timezone == "" {
		timezone = "UTC"
	}
	if when.DateTime != "" {
		t, err := time.Parse(time.RFC3339, when.DateTime)
		if err != nil {
			return time.Time{}, timezone
		}
		return t.UTC(), timezone
	}
	t, _ := time.Parse("2006-01-02", when.Date)
	return t, timezone
}

// meetingURL resolves the join link: the native conferencing shortcut first,
// then the first video entry point of the structured conference data, and as
// a last resort a link scraped out of the description or location.
func meetingURL(item *calendar.Event) string {
	if item.HangoutLink != "" {
		return item.HangoutLink
	}
	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	if url := conferenceURL.FindString(item.Description); url != "" {
		return url
	}
	return conferenceURL.FindString(item.Location)
}

func recurrenceRule(recurrence []string) string {
	for _, line := range recurrence {
		if strings.HasPrefix(line, "RRULE:") {
			return line
		}
	}
	if len(recurrence) > 0 {
		return recurrence[0]
	}
	return ""
}

func responseStatus(native string) calconnect.ResponseStatus {
	switch native {
	case "accepted":
		return calconnect.Accepted
	case "declined":
		return calconnect.Declined
	case "tentative":
		return calconnect.Tentative
	default:
		return calconnect.NeedsAction
	}
}

func eventStatus(native string) calconnect.EventStatus {
	switch native {
	case "tentative":
		return calconnect.StatusTentative
	case "cancelled":
		return calconnect.StatusCancelled
	default:
		return calconnect.StatusConfirmed
	}
}
