package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/email-priority/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the ContactRegistry and
// SenderHistoryStore interfaces, suitable for sharing state across
// several scoring processes.
type MySQLStore struct {
	db     *sql.DB
	epoch  atomic.Uint64
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS contacts (
			identity_key VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255),
			level VARCHAR(32),
			title VARCHAR(255)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create contacts table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_history (
			sender_email VARCHAR(255) PRIMARY KEY,
			emails_received INT NOT NULL DEFAULT 0,
			emails_replied INT NOT NULL DEFAULT 0,
			total_response_ms BIGINT NOT NULL DEFAULT 0,
			first_seen DATETIME(3),
			last_interaction DATETIME(3),
			version BIGINT NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sender_history table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Lookup finds a contact by exact email address or bare domain
func (s *MySQLStore) Lookup(ctx context.Context, identityKey string) (*core.Contact, error) {
	var contact core.Contact
	var level string

	err := s.db.QueryRowContext(ctx, `
		SELECT identity_key, name, level, title
		FROM contacts
		WHERE identity_key = ?
	`, normalizeKey(identityKey)).Scan(&contact.Key, &contact.Name, &level, &contact.Title)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	contact.Level = core.AuthorityLevel(level)
	return &contact, nil
}

// PutContact creates or replaces a registry entry
func (s *MySQLStore) PutContact(ctx context.Context, contact *core.Contact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (identity_key, name, level, title)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), level = VALUES(level), title = VALUES(title)
	`, normalizeKey(contact.Key), contact.Name, string(contact.Level), contact.Title)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}
	s.epoch.Add(1)
	return nil
}

// Get retrieves the history record for a sender
func (s *MySQLStore) Get(ctx context.Context, senderEmail string) (*core.SenderHistory, error) {
	var history core.SenderHistory
	var totalMs int64
	var firstSeen, lastInteraction sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT sender_email, emails_received, emails_replied, total_response_ms,
		       first_seen, last_interaction, version
		FROM sender_history
		WHERE sender_email = ?
	`, normalizeKey(senderEmail)).Scan(
		&history.SenderEmail,
		&history.EmailsReceived,
		&history.EmailsReplied,
		&totalMs,
		&firstSeen,
		&lastInteraction,
		&history.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	history.TotalResponseTime = time.Duration(totalMs) * time.Millisecond
	if firstSeen.Valid {
		history.FirstSeen = firstSeen.Time
	}
	if lastInteraction.Valid {
		history.LastInteraction = lastInteraction.Time
	}
	return &history, nil
}

// RecordEmailReceived registers a sighting of a sender
func (s *MySQLStore) RecordEmailReceived(ctx context.Context, senderEmail string, at time.Time) error {
	key := normalizeKey(senderEmail)

	for attempt := 0; attempt < replyRetries; attempt++ {
		inserted, err := s.insertFirstSighting(ctx, key, at, 1)
		if err != nil {
			return err
		}
		if inserted {
			s.epoch.Add(1)
			return nil
		}

		var version int64
		if err := s.db.QueryRowContext(ctx,
			`SELECT version FROM sender_history WHERE sender_email = ?`, key,
		).Scan(&version); err != nil {
			return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
		}

		res, err := s.db.ExecContext(ctx, `
			UPDATE sender_history
			SET emails_received = emails_received + 1,
			    last_interaction = GREATEST(last_interaction, ?),
			    version = version + 1
			WHERE sender_email = ? AND version = ?
		`, at, key, version)
		if err != nil {
			return fmt.Errorf("failed to update sender history: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.epoch.Add(1)
			return nil
		}
	}
	return core.ErrConflict
}

// RecordReply registers a reply-completion event for a sender
func (s *MySQLStore) RecordReply(ctx context.Context, senderEmail string, responseTime time.Duration) error {
	key := normalizeKey(senderEmail)
	now := time.Now()

	for attempt := 0; attempt < replyRetries; attempt++ {
		if _, err := s.insertFirstSighting(ctx, key, now, 0); err != nil {
			return err
		}

		var version int64
		if err := s.db.QueryRowContext(ctx,
			`SELECT version FROM sender_history WHERE sender_email = ?`, key,
		).Scan(&version); err != nil {
			return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
		}

		res, err := s.db.ExecContext(ctx, `
			UPDATE sender_history
			SET emails_replied = emails_replied + 1,
			    emails_received = GREATEST(emails_received, emails_replied + 1),
			    total_response_ms = total_response_ms + ?,
			    last_interaction = ?,
			    version = version + 1
			WHERE sender_email = ? AND version = ?
		`, responseTime.Milliseconds(), now, key, version)
		if err != nil {
			return fmt.Errorf("failed to update sender history: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.epoch.Add(1)
			return nil
		}
	}
	return core.ErrConflict
}

func (s *MySQLStore) insertFirstSighting(ctx context.Context, key string, at time.Time, received int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO sender_history
			(sender_email, emails_received, emails_replied, total_response_ms, first_seen, last_interaction, version)
		VALUES (?, ?, 0, 0, ?, ?, 0)
	`, key, received, at, at)
	if err != nil {
		return false, fmt.Errorf("failed to insert sender history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Epoch increases whenever store state changes. The counter is process-local;
// TTL on the score cache bounds staleness across processes.
func (s *MySQLStore) Epoch() uint64 {
	return s.epoch.Load()
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
