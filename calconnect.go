// Package calconnect keeps a local calendar-event store in sync with
// heterogeneous remote calendar services. Each remote service is wrapped by a
// Provider adapter that speaks the service's own wire protocol and produces
// the canonical shapes defined in this package.
package calconnect

import (
	"context"
	"encoding/json"
	"time"
)

// Credentials is the OAuth credential set for one (provider, account) pair.
// It is owned by the caller; adapters only read it. A refresh produces a new
// Credentials value, it never edits one in place.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the access token expires before now+leeway.
func (c Credentials) ExpiresWithin(leeway time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.Before(time.Now().Add(leeway))
}

type ResponseStatus string

func (s ResponseStatus) String() string {
	return string(s)
}

var (
	NeedsAction ResponseStatus = "needsAction"
	Declined    ResponseStatus = "declined"
	Tentative   ResponseStatus = "tentative"
	Accepted    ResponseStatus = "accepted"
)

type EventStatus string

func (s EventStatus) String() string {
	return string(s)
}

var (
	StatusConfirmed EventStatus = "confirmed"
	StatusTentative EventStatus = "tentative"
	StatusCancelled EventStatus = "cancelled"
)

// Attendee is a participant of an event. ResponseStatus is always one of the
// four canonical values; adapters map every native vocabulary onto it and
// fall back to NeedsAction for anything they do not recognize.
type Attendee struct {
	Email          string         `json:"email"`
	Name           string         `json:"name,omitempty"`
	ResponseStatus ResponseStatus `json:"response_status"`
	Self           bool           `json:"self,omitempty"`
	Organizer      bool           `json:"organizer,omitempty"`
}

// Event is the canonical, provider-agnostic event shape. ExternalID is
// unique only within one (provider, account); storage must key on the full
// triple. StartsAt and EndsAt are UTC instants. Raw carries the provider's
// original record so callers can reach provider-specific fields without an
// adapter change.
type Event struct {
	ExternalID     string          `json:"external_id"`
	Summary        string          `json:"summary"`
	Description    string          `json:"description,omitempty"`
	StartsAt       time.Time       `json:"starts_at"`
	EndsAt         time.Time       `json:"ends_at"`
	Timezone       string          `json:"timezone"`
	Location       string          `json:"location,omitempty"`
	MeetingURL     string          `json:"meeting_url,omitempty"`
	Attendees      []Attendee      `json:"attendees,omitempty"`
	OrganizerEmail string          `json:"organizer_email,omitempty"`
	IsRecurring    bool            `json:"is_recurring"`
	RecurrenceRule string          `json:"recurrence_rule,omitempty"`
	Status         EventStatus     `json:"status"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// SyncResult is the single combined result of one ListEvents call, after the
// adapter drained every remote page.
//
// Deleted is populated only when the call was a genuine incremental
// continuation: a cursor was supplied and the remote accepted it. A full or
// bootstrap sync has no prior snapshot to diff against and always reports an
// empty Deleted, so callers must union results into their store rather than
// replace it.
//
// FullResync reports that a supplied cursor was rejected by the remote and
// the adapter silently restarted as a full sync. Callers see no error in
// that case but should log the transition and treat the result as a
// bootstrap.
type SyncResult struct {
	Events        []*Event `json:"events"`
	NextSyncToken string   `json:"next_sync_token,omitempty"`
	Deleted       []string `json:"deleted,omitempty"`
	FullResync    bool     `json:"full_resync,omitempty"`
}

// ListOptions selects the window for a full sync. SyncToken, when set, asks
// for an incremental continuation instead; its contents are adapter-specific
// and opaque to callers (a sync token for one service, an entire delta URL
// for another) and must never be parsed.
type ListOptions struct {
	From      time.Time
	To        time.Time
	SyncToken string
}

// Provider is the contract every remote calendar adapter implements. All
// operations are sequential request/response calls with no shared mutable
// state; one adapter value is safe to use from concurrent goroutines as long
// as each call carries its own credentials.
//
// None of the operations retry: a network failure or an unexpected remote
// status propagates immediately and retry policy belongs to the caller. The
// single exception is cursor invalidation inside ListEvents, which is
// absorbed by a one-shot restart as a full sync.
type Provider interface {
	// ExchangeAuthCode trades an OAuth authorization code for credentials.
	ExchangeAuthCode(ctx context.Context, code, redirectURI string) (*Credentials, error)

	// RefreshAccessToken trades a refresh token for new credentials. The
	// returned RefreshToken is never empty: when the remote omits a rotated
	// one the input token is carried over. A remote rejection is an
	// *AuthError and is fatal for the credential.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*Credentials, error)

	// ListEvents returns every event changed in the window (full sync) or
	// since the cursor (incremental sync), draining all remote pages.
	ListEvents(ctx context.Context, creds *Credentials, opts ListOptions) (*SyncResult, error)

	// GetEvent fetches one event by its provider-assigned id. A remote
	// not-found returns (nil, nil).
	GetEvent(ctx context.Context, creds *Credentials, externalID string) (*Event, error)
}

// Connection ties stored credentials and the sync cursor to one
// (provider, account) pair, the durable identity everything is keyed on.
type Connection struct {
	Provider    string
	Account     string
	Credentials Credentials
	SyncToken   string
}

func (c Connection) ID() string {
	return c.Provider + "/" + c.Account
}

func (c Connection) String() string {
	return c.ID()
}
