// Package google implements the calconnect.Provider contract against the
// Google Calendar REST API, using its sync-token incremental model.
package google

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/guilherme-santos/calconnect"
	"github.com/guilherme-santos/calconnect/internal"
)

const (
	providerName = "google"
	calendarID   = "primary"
	pageSize     = 250
)

// Config is the OAuth application identity. TokenURL and Endpoint default to
// the live Google endpoints and exist so tests can point at a fake remote.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	AuthURL      string
	Endpoint     string
	HTTPClient   *http.Client
}

type Client struct {
	cfg Config

	Verbose bool
}

func NewClient(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = "https://accounts.google.com/o/oauth2/v2/auth"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{cfg: cfg}
}

// AuthCodeURL is the browser URL that starts the consent flow. The state
// value is echoed back on the redirect and must be checked by the caller.
func (c *Client) AuthCodeURL(redirectURI, state string) string {
	oauthCfg := c.oauthConfig()
	oauthCfg.RedirectURL = redirectURI
	oauthCfg.Scopes = []string{calendar.CalendarReadonlyScope}
	return oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (c *Client) ExchangeAuthCode(ctx context.Context, code, redirectURI string) (*calconnect.Credentials, error) {
	oauthCfg := c.oauthConfig()
	oauthCfg.RedirectURL = redirectURI

	tok, err := oauthCfg.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return nil, c.authError(err)
	}
	return newCredentials(tok, ""), nil
}

func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*calconnect.Credentials, error) {
	seed := &oauth2.Token{RefreshToken: refreshToken}

	tok, err := c.oauthConfig().TokenSource(c.oauthContext(ctx), seed).Token()
	if err != nil {
		return nil, c.authError(err)
	}
	return newCredentials(tok, refreshToken), nil
}

func (c *Client) ListEvents(ctx context.Context, creds *calconnect.Credentials, opts calconnect.ListOptions) (*calconnect.SyncResult, error) {
	svc, err := c.calendarSvc(ctx, creds)
	if err != nil {
		return nil, err
	}
	return c.listEvents(ctx, svc, opts)
}

func (c *Client) listEvents(ctx context.Context, svc *calendar.Service, opts calconnect.ListOptions) (*calconnect.SyncResult, error) {
	incremental := opts.SyncToken != ""

	call := svc.Events.List(calendarID).
		Context(ctx).
		ShowDeleted(true).
		SingleEvents(true).
		MaxResults(pageSize)
	if incremental {
		// The window is defined by when the token was issued; the remote
		// rejects date filters alongside a sync token.
		call.SyncToken(opts.SyncToken)
	} else {
		if !opts.From.IsZero() {
			call.TimeMin(opts.From.Format(time.RFC3339))
		}
		if !opts.To.IsZero() {
			call.TimeMax(opts.To.Format(time.RFC3339))
		}
	}

	result := new(calconnect.SyncResult)

	var pageToken string
	for {
		page, err := call.PageToken(pageToken).Do()
		if err != nil {
			if incremental && isStatus(err, http.StatusGone) {
				// The remote expired our sync token. Restart once as a full
				// sync over the same window; the caller never sees cursor
				// expiry as an error.
				c.logf("sync token expired, restarting as full sync")
				opts.SyncToken = ""
				full, err := c.listEvents(ctx, svc, opts)
				if full != nil {
					full.FullResync = true
				}
				return full, err
			}
			return nil, c.protocolError(err)
		}

		for _, item := range page.Items {
			if item.Status == "cancelled" {
				if incremental {
					result.Deleted = append(result.Deleted, item.Id)
				}
				continue
			}
			result.Events = append(result.Events, newEvent(item))
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			// Only the final page carries the next sync token.
			result.NextSyncToken = page.NextSyncToken
			break
		}
	}
	return result, nil
}

func (c *Client) GetEvent(ctx context.Context, creds *calconnect.Credentials, externalID string) (*calconnect.Event, error) {
	svc, err := c.calendarSvc(ctx, creds)
	if err != nil {
		return nil, err
	}

	item, err := svc.Events.Get(calendarID, externalID).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, c.protocolError(err)
	}
	return newEvent(item), nil
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.cfg.AuthURL,
			TokenURL: c.cfg.TokenURL,
			// client_id/client_secret go in the form body, not a Basic
			// header.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)
}

func (c *Client) calendarSvc(ctx context.Context, creds *calconnect.Credentials) (*calendar.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken})
	httpClient := oauth2.NewClient(c.oauthContext(ctx), src)

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.cfg.Endpoint != "" {
		endpoint := c.cfg.Endpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

func newCredentials(tok *oauth2.Token, prevRefreshToken string) *calconnect.Credentials {
	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		// A refresh token is never silently dropped: keep the one we sent
		// when the remote does not rotate it.
		refreshToken = prevRefreshToken
	}
	return &calconnect.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

func (c *Client) authError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		return &calconnect.AuthError{
			Provider:   providerName,
			StatusCode: rErr.Response.StatusCode,
			Body:       string(rErr.Body),
		}
	}
	return err
}

func (c *Client) protocolError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return &calconnect.ProtocolError{
			Provider:   providerName,
			StatusCode: gErr.Code,
			Body:       gErr.Body,
		}
	}
	return err
}

func isStatus(err error, code int) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == code
}

func (c *Client) logf(format string, a ...any) {
	if c.Verbose {
		internal.Logf(os.Stdout, "google:", nil, format, a...)
	}
}
