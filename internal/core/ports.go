package core

import (
	"context"
	"time"
)

// ContactRegistry maps sender identities to declared authority levels.
// Lookup returns ErrNotFound for unknown keys and ErrStoreUnavailable when
// the backing store cannot be reached.
type ContactRegistry interface {
	// Lookup finds a contact by exact email address or bare domain
	Lookup(ctx context.Context, identityKey string) (*Contact, error)

	// Epoch increases whenever registry state changes; it participates in
	// score-cache keys so stale cached scores are not served
	Epoch() uint64
}

// SenderHistoryStore holds per-sender interaction statistics
type SenderHistoryStore interface {
	// Get retrieves the history record for a sender, or ErrNotFound
	Get(ctx context.Context, senderEmail string) (*SenderHistory, error)

	// RecordEmailReceived registers a sighting of a sender, creating the
	// history record on first sight. Invoked by ingestion, never by scoring.
	RecordEmailReceived(ctx context.Context, senderEmail string, at time.Time) error

	// RecordReply registers a reply-completion event for a sender. Updates
	// for the same sender are serialized; concurrent conflicts are retried
	// internally and ErrConflict is returned only when retries are exhausted.
	RecordReply(ctx context.Context, senderEmail string, responseTime time.Duration) error

	// Epoch increases whenever history state changes
	Epoch() uint64
}

// SentimentScores are the four tone sub-scores, each 0-100
type SentimentScores struct {
	Urgency    int `json:"urgency"`
	Stress     int `json:"stress"`
	Anger      int `json:"anger"`
	Excitement int `json:"excitement"`
}

// SentimentAnalyzer is the optional AI-backed tone collaborator
type SentimentAnalyzer interface {
	// Analyze estimates the emotional tone of the given text
	Analyze(ctx context.Context, text string) (*SentimentScores, error)

	// Name identifies the backing provider for reason strings and logs
	Name() string
}

// TimeWindow is an extracted meeting window
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// CalendarChecker is the optional calendar-conflict collaborator
type CalendarChecker interface {
	// CheckConflict reports whether the window overlaps an existing commitment
	CheckConflict(ctx context.Context, window TimeWindow) (bool, error)
}

// ScoreCache stores computed results keyed by email ID plus content and
// store-state hashes. Get returns ErrNotFound on miss.
type ScoreCache interface {
	Get(ctx context.Context, key string) (*ScoreResult, error)
	Set(ctx context.Context, key string, result *ScoreResult, ttl time.Duration) error
}
