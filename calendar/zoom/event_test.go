package zoom

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guilherme-santos/calconnect"
)

func TestNewEvent_Recurring(t *testing.T) {
	assert.False(t, newEvent(&meeting{ID: 1, Type: 2}, nil, "").IsRecurring)
	assert.True(t, newEvent(&meeting{ID: 1, Type: meetingTypeRecurringNoFixed}, nil, "").IsRecurring)
	assert.True(t, newEvent(&meeting{ID: 1, Type: meetingTypeRecurringFixed}, nil, "").IsRecurring)
}

func TestNewEvent_NoHost(t *testing.T) {
	ev := newEvent(&meeting{ID: 1}, nil, "")
	assert.Empty(t, ev.Attendees)
	assert.Equal(t, "UTC", ev.Timezone)
}

func TestNewAttendee(t *testing.T) {
	a := newAttendee(registrant{Email: "x@example.com", LastName: "Solo", Status: "approved"})
	assert.Equal(t, "Solo", a.Name)
	assert.Equal(t, calconnect.Accepted, a.ResponseStatus)

	a = newAttendee(registrant{Email: "y@example.com", FirstName: "First", LastName: "Last", Status: "denied"})
	assert.Equal(t, "First Last", a.Name)
	assert.Equal(t, calconnect.NeedsAction, a.ResponseStatus)
}
