package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/email-priority/internal/core"
	"go.uber.org/zap"
)

// replyRetries bounds the optimistic-concurrency loop on RecordReply
const replyRetries = 3

// SQLiteStore is a SQLite implementation of the ContactRegistry and
// SenderHistoryStore interfaces. RecordReply uses an optimistic version
// column so concurrent reply events for the same sender never lose updates.
type SQLiteStore struct {
	db     *sql.DB
	epoch  atomic.Uint64
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS contacts (
			identity_key TEXT PRIMARY KEY,
			name TEXT,
			level TEXT,
			title TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create contacts table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_history (
			sender_email TEXT PRIMARY KEY,
			emails_received INTEGER NOT NULL DEFAULT 0,
			emails_replied INTEGER NOT NULL DEFAULT 0,
			total_response_ms INTEGER NOT NULL DEFAULT 0,
			first_seen TIMESTAMP,
			last_interaction TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sender_history table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Lookup finds a contact by exact email address or bare domain
func (s *SQLiteStore) Lookup(ctx context.Context, identityKey string) (*core.Contact, error) {
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
func (s *SQLiteStore) PutContact(ctx context.Context, contact *core.Contact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO contacts (identity_key, name, level, title)
		VALUES (?, ?, ?, ?)
	`, normalizeKey(contact.Key), contact.Name, string(contact.Level), contact.Title)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}
	s.epoch.Add(1)
	return nil
}

// Get retrieves the history record for a sender
func (s *SQLiteStore) Get(ctx context.Context, senderEmail string) (*core.SenderHistory, error) {
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
func (s *SQLiteStore) RecordEmailReceived(ctx context.Context, senderEmail string, at time.Time) error {
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
			    last_interaction = MAX(last_interaction, ?),
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
		// Raced another writer, re-read and retry
	}
	return core.ErrConflict
}

// RecordReply registers a reply-completion event for a sender
func (s *SQLiteStore) RecordReply(ctx context.Context, senderEmail string, responseTime time.Duration) error {
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
			    emails_received = MAX(emails_received, emails_replied + 1),
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

// insertFirstSighting creates a record when the sender is unknown and
// reports whether a fresh row was inserted.
func (s *SQLiteStore) insertFirstSighting(ctx context.Context, key string, at time.Time, received int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sender_history
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
func (s *SQLiteStore) Epoch() uint64 {
	return s.epoch.Load()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
