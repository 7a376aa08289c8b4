package sqlite

func (s Storage) RunMigrations() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS connections (
		provider VARCHAR NOT NULL,
		account VARCHAR NOT NULL,
		access_token VARCHAR NOT NULL,
		refresh_token VARCHAR NOT NULL,
		expires_at TIMESTAMP NULL DEFAULT NULL,
		sync_token TEXT NOT NULL DEFAULT "",
		PRIMARY KEY (provider, account)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		connection_id VARCHAR NOT NULL,
		external_id VARCHAR NOT NULL,
		summary VARCHAR NOT NULL DEFAULT "",
		description TEXT NOT NULL DEFAULT "",
		starts_at TIMESTAMP NOT NULL,
		ends_at TIMESTAMP NOT NULL,
		timezone VARCHAR NOT NULL DEFAULT "UTC",
		location VARCHAR NOT NULL DEFAULT "",
		meeting_url VARCHAR NOT NULL DEFAULT "",
		attendees TEXT NOT NULL DEFAULT "[]",
		organizer_email VARCHAR NOT NULL DEFAULT "",
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		recurrence_rule VARCHAR NOT NULL DEFAULT "",
		status VARCHAR NOT NULL DEFAULT "confirmed",
		raw TEXT NOT NULL DEFAULT "",
		PRIMARY KEY (connection_id, external_id)
	)`,
}
