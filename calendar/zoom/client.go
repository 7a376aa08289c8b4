// Package zoom implements the calconnect.Provider contract against the Zoom
// meetings API.
//
// This service has no incremental-sync primitive: every listing is a full
// listing over a date window, so NextSyncToken is always empty and Deleted is
// never populated. Callers that need deletion signals must diff successive
// listings themselves.
package zoom

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/guilherme-santos/calconnect"
)

const (
	providerName = "zoom"
	pageSize     = 300
)

type Config struct {
	ClientID     string
	ClientSecret string
	OAuthURL     string
	APIURL       string
	HTTPClient   *http.Client
}

type Client struct {
	cfg Config

	Verbose bool
}

func NewClient(cfg Config) *Client {
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = "https://zoom.us/oauth"
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.zoom.us/v2"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{cfg: cfg}
}

// AuthCodeURL is the browser URL that starts the consent flow.
func (c *Client) AuthCodeURL(redirectURI, state string) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {redirectURI},
		"state":         {state},
	}
	return c.cfg.OAuthURL + "/authorize?" + q.Encode()
}

func (c *Client) ExchangeAuthCode(ctx context.Context, code, redirectURI string) (*calconnect.Credentials, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	return c.tokenGrant(ctx, form, "")
}

func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*calconnect.Credentials, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.tokenGrant(ctx, form, refreshToken)
}

func (c *Client) tokenGrant(ctx context.Context, form url.Values, prevRefreshToken string) (*calconnect.Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// This service authenticates the OAuth application with a Basic header
	// rather than form fields.
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zoom: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &calconnect.AuthError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("zoom: decoding token response: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = prevRefreshToken
	}
	return &calconnect.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

func (c *Client) ListEvents(ctx context.Context, creds *calconnect.Credentials, opts calconnect.ListOptions) (*calconnect.SyncResult, error) {
	hostEmail, err := c.me(ctx, creds)
	if err != nil {
		return nil, err
	}

	result := new(calconnect.SyncResult)

	var nextPageToken string
	for {
		// The remote filters by whole days only; the exact-instant window is
		// applied client-side below.
		params := url.Values{
			"type":      {"scheduled"},
			"from":      {opts.From.UTC().Format("2006-01-02")},
			"to":        {opts.To.UTC().Format("2006-01-02")},
			"page_size": {strconv.Itoa(pageSize)},
		}
		if nextPageToken != "" {
			params.Set("next_page_token", nextPageToken)
		}

		body, err := c.get(ctx, creds, "/users/me/meetings?"+params.Encode())
		if err != nil {
			return nil, err
		}

		var page struct {
			Meetings      []json.RawMessage `json:"meetings"`
			NextPageToken string            `json:"next_page_token"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("zoom: decoding page: %w", err)
		}

		for _, raw := range page.Meetings {
			var m meeting
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, fmt.Errorf("zoom: decoding meeting: %w", err)
			}

			ev := newEvent(&m, raw, hostEmail)
			if ev.StartsAt.Before(opts.From) || ev.StartsAt.After(opts.To) {
				continue
			}

			registrants, err := c.registrants(ctx, creds, ev.ExternalID)
			if err != nil {
				return nil, err
			}
			ev.Attendees = append(ev.Attendees, registrants...)

			result.Events = append(result.Events, ev)
		}

		nextPageToken = page.NextPageToken
		if nextPageToken == "" {
			break
		}
	}
	return result, nil
}

func (c *Client) GetEvent(ctx context.Context, creds *calconnect.Credentials, externalID string) (*calconnect.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/meetings/"+url.PathEscape(externalID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zoom: get meeting: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &calconnect.ProtocolError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var m meeting
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("zoom: decoding meeting: %w", err)
	}

	ev := newEvent(&m, body, m.HostEmail)
	registrants, err := c.registrants(ctx, creds, ev.ExternalID)
	if err != nil {
		return nil, err
	}
	ev.Attendees = append(ev.Attendees, registrants...)
	return ev, nil
}

// me resolves the account owner once per listing; the listing payload only
// carries an opaque host_id.
func (c *Client) me(ctx context.Context, creds *calconnect.Credentials) (string, error) {
	body, err := c.get(ctx, creds, "/users/me")
	if err != nil {
		return "", err
	}
	var user struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("zoom: decoding user: %w", err)
	}
	return user.Email, nil
}

func (c *Client) registrants(ctx context.Context, creds *calconnect.Credentials, meetingID string) ([]calconnect.Attendee, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/meetings/"+url.PathEscape(meetingID)+"/registrants?page_size="+strconv.Itoa(pageSize), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zoom: listing registrants: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	// Meetings without registration enabled answer 400/404 here; that just
	// means there are no registrant records.
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &calconnect.ProtocolError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var page struct {
		Registrants []registrant `json:"registrants"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("zoom: decoding registrants: %w", err)
	}

	attendees := make([]calconnect.Attendee, 0, len(page.Registrants))
	for _, r := range page.Registrants {
		attendees = append(attendees, newAttendee(r))
	}
	return attendees, nil
}

func (c *Client) get(ctx context.Context, creds *calconnect.Credentials, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zoom: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &calconnect.ProtocolError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
