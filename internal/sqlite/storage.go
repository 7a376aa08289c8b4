// Package sqlite persists connections and their synced events in a local
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/guilherme-santos/calconnect"
	"github.com/jmoiron/sqlx"
)

const DriverName = "sqlite3"

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sql.DB) *Storage {
	s := &Storage{
		db: sqlx.NewDb(db, DriverName),
	}
	err := s.RunMigrations()
	if err != nil {
		panic(fmt.Sprintf("sqlite: running migrations: %v", err))
	}
	return s
}

// AddConnection inserts a connection, or replaces the credentials of an
// existing one. The sync token is reset on replace: fresh credentials may
// belong to a different grant, and a stale cursor from a previous grant is
// not worth trusting.
func (s Storage) AddConnection(ctx context.Context, conn *calconnect.Connection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (provider, account, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider, account) DO UPDATE
			SET access_token = excluded.access_token,
				refresh_token = excluded.refresh_token,
				expires_at = excluded.expires_at,
				sync_token = "";
	`, conn.Provider, conn.Account,
		conn.Credentials.AccessToken, conn.Credentials.RefreshToken, conn.Credentials.ExpiresAt)
	return err
}

func (s Storage) Connections(ctx context.Context, connIDs []string) ([]*calconnect.Connection, error) {
	orWhere := []string{}
	var args []interface{}
	for _, id := range connIDs {
		orWhere = append(orWhere, `provider || "/" || account = ?`)
		args = append(args, id)
	}
	if len(orWhere) == 0 {
		orWhere = append(orWhere, "1 = 1")
	}

	var conns []Connection

	err := s.db.SelectContext(ctx, &conns, `
		SELECT provider, account, access_token, refresh_token, expires_at, sync_token
		FROM connections
		WHERE `+strings.Join(orWhere, " OR ")+`
		ORDER BY provider, account`, args...)
	if err != nil {
		return nil, err
	}

	res := make([]*calconnect.Connection, len(conns))
	for i, c := range conns {
		res[i] = c.Convert()
	}
	return res, nil
}

func (s Storage) SaveCredentials(ctx context.Context, conn *calconnect.Connection, creds *calconnect.Credentials) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE connections
		SET access_token = ?, refresh_token = ?, expires_at = ?
		WHERE provider = ? AND account = ?
	`, creds.AccessToken, creds.RefreshToken, creds.ExpiresAt, conn.Provider, conn.Account)
	return err
}

func (s Storage) SaveSyncToken(ctx context.Context, conn *calconnect.Connection, token string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE connections SET sync_token = ? WHERE provider = ? AND account = ?
	`, token, conn.Provider, conn.Account)
	return err
}

func (s Storage) UpsertEvents(ctx context.Context, conn *calconnect.Connection, events []*calconnect.Event) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ev := range events {
		row, err := newEvent(conn, ev)
		if err != nil {
			return fmt.Errorf("event %s: %v", ev.ExternalID, err)
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO events (connection_id, external_id, summary, description,
				starts_at, ends_at, timezone, location, meeting_url, attendees,
				organizer_email, is_recurring, recurrence_rule, status, raw)
			VALUES (:connection_id, :external_id, :summary, :description,
				:starts_at, :ends_at, :timezone, :location, :meeting_url, :attendees,
				:organizer_email, :is_recurring, :recurrence_rule, :status, :raw)
			ON CONFLICT(connection_id, external_id) DO UPDATE
				SET summary = excluded.summary,
					description = excluded.description,
					starts_at = excluded.starts_at,
					ends_at = excluded.ends_at,
					timezone = excluded.timezone,
					location = excluded.location,
					meeting_url = excluded.meeting_url,
					attendees = excluded.attendees,
					organizer_email = excluded.organizer_email,
					is_recurring = excluded.is_recurring,
					recurrence_rule = excluded.recurrence_rule,
					status = excluded.status,
					raw = excluded.raw;
		`, row)
		if err != nil {
			return fmt.Errorf("event %s: %v", ev.ExternalID, err)
		}
	}
	return tx.Commit()
}

func (s Storage) DeleteEvents(ctx context.Context, conn *calconnect.Connection, externalIDs []string) error {
	if len(externalIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`
		DELETE FROM events WHERE connection_id = ? AND external_id IN (?)
	`, conn.ID(), externalIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Events returns the stored events for one connection, ordered by start
// time.
func (s Storage) Events(ctx context.Context, conn *calconnect.Connection) ([]*calconnect.Event, error) {
	var rows []Event

	err := s.db.SelectContext(ctx, &rows, `
		SELECT connection_id, external_id, summary, description, starts_at,
			ends_at, timezone, location, meeting_url, attendees,
			organizer_email, is_recurring, recurrence_rule, status, raw
		FROM events
		WHERE connection_id = ?
		ORDER BY starts_at, external_id
	`, conn.ID())
	if err != nil {
		return nil, err
	}

	res := make([]*calconnect.Event, len(rows))
	for i, row := range rows {
		res[i], err = row.Convert()
		if err != nil {
			return nil, fmt.Errorf("event %s: %v", row.ExternalID, err)
		}
	}
	return res, nil
}
