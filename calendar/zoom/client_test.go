package zoom

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilherme-santos/calconnect"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		OAuthURL:     srv.URL + "/oauth",
		APIURL:       srv.URL,
		HTTPClient:   srv.Client(),
	})
	return client, srv
}

func TestListEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "u-1", "email": "host@example.com"}`)
	})
	mux.HandleFunc("/users/me/meetings", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "scheduled", q.Get("type"))
		// The remote only filters by whole days.
		assert.Equal(t, "2026-03-02", q.Get("from"))
		assert.Equal(t, "2026-03-02", q.Get("to"))

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("next_page_token") {
		case "":
			fmt.Fprint(w, `{
				"meetings": [
					{"id": 111, "topic": "Early call", "type": 2,
					 "start_time": "2026-03-02T07:00:00Z", "duration": 30, "timezone": "UTC",
					 "join_url": "https://zoom.us/j/111"}
				],
				"next_page_token": "p2"
			}`)
		case "p2":
			fmt.Fprint(w, `{
				"meetings": [
					{"id": 222, "topic": "Weekly", "type": 8,
					 "start_time": "2026-03-02T12:00:00Z", "duration": 60, "timezone": "Europe/Berlin",
					 "join_url": "https://zoom.us/j/222"}
				]
			}`)
		default:
			t.Errorf("unexpected next_page_token %q", q.Get("next_page_token"))
		}
	})
	mux.HandleFunc("/meetings/222/registrants", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"registrants": [
			{"email": "guest@example.com", "first_name": "Guest", "last_name": "One", "status": "approved"},
			{"email": "maybe@example.com", "first_name": "Maybe", "status": "pending"}
		]}`)
	})

	client, _ := newTestClient(t, mux)

	// The window starts mid-morning: the 07:00 meeting shares the day but
	// falls outside the exact instants and must be filtered client-side.
	res, err := client.ListEvents(context.Background(), &calconnect.Credentials{AccessToken: "at"}, calconnect.ListOptions{
		From: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// This provider has no change feed: the cursor stays empty and nothing
	// is ever reported deleted.
	assert.Empty(t, res.NextSyncToken)
	assert.Empty(t, res.Deleted)
	assert.False(t, res.FullResync)

	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, "222", ev.ExternalID)
	assert.Equal(t, "Weekly", ev.Summary)
	assert.Equal(t, time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC), ev.EndsAt)
	assert.True(t, ev.IsRecurring)
	assert.Equal(t, "host@example.com", ev.OrganizerEmail)

	require.Len(t, ev.Attendees, 3)
	assert.True(t, ev.Attendees[0].Organizer)
	assert.Equal(t, calconnect.Accepted, ev.Attendees[1].ResponseStatus)
	assert.Equal(t, "Guest One", ev.Attendees[1].Name)
	assert.Equal(t, calconnect.NeedsAction, ev.Attendees[2].ResponseStatus)
}

func TestListEvents_NoRegistration(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"email": "host@example.com"}`)
	})
	mux.HandleFunc("/users/me/meetings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"meetings": [
			{"id": 111, "topic": "Call", "type": 2,
			 "start_time": "2026-03-02T10:00:00Z", "duration": 30, "join_url": "https://zoom.us/j/111"}
		]}`)
	})
	mux.HandleFunc("/meetings/111/registrants", func(w http.ResponseWriter, r *http.Request) {
		// Registration is not enabled for this meeting.
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code": 300, "message": "Registration has not been enabled"}`)
	})

	client, _ := newTestClient(t, mux)

	res, err := client.ListEvents(context.Background(), &calconnect.Credentials{AccessToken: "at"}, calconnect.ListOptions{
		From: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	// Only the host attendee remains.
	require.Len(t, res.Events[0].Attendees, 1)
	assert.True(t, res.Events[0].Attendees[0].Organizer)
}

func TestRefreshAccessToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))

		// The OAuth application authenticates with a Basic header.
		basic := base64.StdEncoding.EncodeToString([]byte("client-id:client-secret"))
		assert.Equal(t, "Basic "+basic, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "at-2", "refresh_token": "rt-2", "expires_in": 3600}`)
	})

	client, _ := newTestClient(t, mux)

	creds, err := client.RefreshAccessToken(context.Background(), "rt-1")
	require.NoError(t, err)

	assert.Equal(t, "at-2", creds.AccessToken)
	assert.Equal(t, "rt-2", creds.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), creds.ExpiresAt, time.Minute)
}

func TestRefreshAccessToken_Rejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"reason": "Invalid Token!"}`)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.RefreshAccessToken(context.Background(), "revoked")
	require.Error(t, err)

	var authErr *calconnect.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "zoom", authErr.Provider)
}

func TestGetEvent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/meetings/111", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 111, "topic": "Call", "host_email": "host@example.com",
			"start_time": "2026-03-02T10:00:00Z", "duration": 30, "join_url": "https://zoom.us/j/111"}`)
	})
	mux.HandleFunc("/meetings/111/registrants", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)

	ev, err := client.GetEvent(context.Background(), &calconnect.Credentials{AccessToken: "at"}, "111")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "111", ev.ExternalID)
	assert.Equal(t, "host@example.com", ev.OrganizerEmail)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC), ev.EndsAt)
}

func TestGetEvent_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/meetings/999", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)

	ev, err := client.GetEvent(context.Background(), &calconnect.Credentials{AccessToken: "at"}, "999")
	require.NoError(t, err)
	assert.Nil(t, ev)
}
