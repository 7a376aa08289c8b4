package google

import (
	"context"
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
		TokenURL:     srv.URL + "/token",
		AuthURL:      srv.URL + "/auth",
		Endpoint:     srv.URL,
		HTTPClient:   srv.Client(),
	})
	return client, srv
}

func TestListEvents_FullSync(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Empty(t, q.Get("syncToken"))
		assert.Equal(t, "true", q.Get("showDeleted"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.NotEmpty(t, q.Get("timeMin"))
		assert.NotEmpty(t, q.Get("timeMax"))

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("pageToken") {
		case "":
			fmt.Fprint(w, `{
				"items": [
					{"id": "ev-1", "status": "confirmed", "summary": "Standup",
					 "start": {"dateTime": "2026-03-02T10:00:00+01:00", "timeZone": "Europe/Berlin"},
					 "end": {"dateTime": "2026-03-02T10:15:00+01:00", "timeZone": "Europe/Berlin"}}
				],
				"nextPageToken": "page-2"
			}`)
		case "page-2":
			fmt.Fprint(w, `{
				"items": [
					{"id": "ev-2", "status": "cancelled"},
					{"id": "ev-3", "status": "confirmed", "summary": "Planning",
					 "start": {"dateTime": "2026-03-03T14:00:00Z"},
					 "end": {"dateTime": "2026-03-03T15:00:00Z"}}
				],
				"nextSyncToken": "sync-token-1"
			}`)
		default:
			t.Errorf("unexpected pageToken %q", q.Get("pageToken"))
		}
	})

	client, _ := newTestClient(t, mux)

	res, err := client.ListEvents(context.Background(), &calconnect.Credentials{AccessToken: "at"}, calconnect.ListOptions{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// The cancelled item is skipped on a full sync, never reported deleted.
	require.Len(t, res.Events, 2)
	assert.Empty(t, res.Deleted)
	assert.False(t, res.FullResync)
	assert.Equal(t, "sync-token-1", res.NextSyncToken)

	ev := res.Events[0]
	assert.Equal(t, "ev-1", ev.ExternalID)
	assert.Equal(t, "Standup", ev.Summary)
	assert.Equal(t, "Europe/Berlin", ev.Timezone)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), ev.StartsAt)
}

func TestListEvents_Incremental(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "sync-token-1", q.Get("syncToken"))
		assert.Empty(t, q.Get("timeMin"))
		assert.Empty(t, q.Get("timeMax"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"items": [
				{"id": "ev-1", "status": "cancelled"},
				{"id": "ev-4", "status": "confirmed", "summary": "Retro",
				 "start": {"dateTime": "2026-03-05T09:00:00Z"},
				 "end": {"dateTime": "2026-03-05T10:00:00Z"}}
			],
			"nextSyncToken": "sync-token-2"
		}`)
	})

	client, _ := newTestClient(t, mux)

	res, err := client.ListEvents(context.Background(), &calconnect.Credentials{AccessToken: "at"}, calconnect.ListOptions{
		SyncToken: "sync-token-1",
	})
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	assert.Equal(t, []string{"ev-1"}, res.Deleted)
	assert.False(t, res.FullResync)
	assert.Equal(t, "sync-token-2", res.NextSyncToken)
}

func TestListEvents_ExpiredSyncToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("syncToken") != "" {
			w.WriteHeader(http.StatusGone)
			fmt.Fprint(w, `{"error": {"code": 410, "message": "Sync token is no longer valid"}}`)
			return
		}
		fmt.Fprint(w, `{
			"items": [
				{"id": "ev-1", "status": "cancelled"},
				{"id": "ev-2", "status": "confirmed", "summary": "Standup",
				 "start": {"dateTime": "2026-03-02T10:00:00Z"},
				 "end": {"dateTime": "2026-03-02T10:15:00Z"}}
			],
			"nextSyncToken": "sync-token-fresh"
		}`)
	})

	client, _ := newTestClient(t, mux)

	res, err := client.ListEvents(context.Background(), &calconnect.Credentials{AccessToken: "at"}, calconnect.ListOptions{
		From:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		SyncToken: "stale-token",
	})
	require.NoError(t, err)

	// The restart is a full sync: no deletions, a fresh token, and the
	// fallback is surfaced to the caller.
	assert.True(t, res.FullResync)
	assert.Empty(t, res.Deleted)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "sync-token-fresh", res.NextSyncToken)
}

func TestRefreshAccessToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
		// Client identity travels in the form body, not a Basic header.
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "at-2", "token_type": "Bearer", "expires_in": 3600}`)
	})

	client, _ := newTestClient(t, mux)

	creds, err := client.RefreshAccessToken(context.Background(), "rt-1")
	require.NoError(t, err)

	assert.Equal(t, "at-2", creds.AccessToken)
	// The grant omitted a rotated refresh token; the input one is kept.
	assert.Equal(t, "rt-1", creds.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), creds.ExpiresAt, time.Minute)
}

func TestRefreshAccessToken_Rotated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "at-2", "refresh_token": "rt-2", "token_type": "Bearer", "expires_in": 3600}`)
	})

	client, _ := newTestClient(t, mux)

	creds, err := client.RefreshAccessToken(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "rt-2", creds.RefreshToken)
}

func TestRefreshAccessToken_Rejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "invalid_grant"}`)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.RefreshAccessToken(context.Background(), "revoked")
	require.Error(t, err)

	var authErr *calconnect.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "google", authErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestGetEvent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events/ev-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "ev-1", "status": "confirmed", "summary": "Standup",
			"start": {"dateTime": "2026-03-02T10:00:00Z"},
			"end": {"dateTime": "2026-03-02T10:15:00Z"}}`)
	})

	client, _ := newTestClient(t, mux)

	ev, err := client.GetEvent(context.Background(), &calconnect.Credentials{AccessToken: "at"}, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "ev-1", ev.ExternalID)
	assert.Equal(t, "Standup", ev.Summary)
}

func TestGetEvent_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events/gone", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"code": 404, "message": "Not Found"}}`)
	})

	client, _ := newTestClient(t, mux)

	ev, err := client.GetEvent(context.Background(), &calconnect.Credentials{AccessToken: "at"}, "gone")
	require.NoError(t, err)
	assert.Nil(t, ev)
}
