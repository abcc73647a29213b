package store

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikey/email-priority/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the ContactRegistry and
// SenderHistoryStore interfaces. History updates are serialized per sender
// through striped locks; cross-sender updates need no coordination.
type MemoryStore struct {
	contacts  map[string]*core.Contact
	histories map[string]*core.SenderHistory
	locks     map[string]*sync.Mutex

	// defaultHistory, when set, is returned for senders with no record.
	// Used by the one-shot CLI to inject a synthetic history.
	defaultHistory *core.SenderHistory

	mu     sync.RWMutex
	epoch  atomic.Uint64
	logger *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		contacts:  make(map[string]*core.Contact),
		histories: make(map[string]*core.SenderHistory),
		locks:     make(map[string]*sync.Mutex),
		logger:    logger,
	}
}

// Lookup finds a contact by exact email address or bare domain
func (s *MemoryStore) Lookup(ctx context.Context, identityKey string) (*core.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[normalizeKey(identityKey)]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *contact
	return &copied, nil
}

// PutContact creates or replaces a registry entry
func (s *MemoryStore) PutContact(ctx context.Context, contact *core.Contact) error {
	s.mu.Lock()
	copied := *contact
	copied.Key = normalizeKey(contact.Key)
	s.contacts[copied.Key] = &copied
	s.mu.Unlock()

	s.epoch.Add(1)
	return nil
}

// Get retrieves the history record for a sender
func (s *MemoryStore) Get(ctx context.Context, senderEmail string) (*core.SenderHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := normalizeKey(senderEmail)
	history, ok := s.histories[key]
	if !ok {
		if s.defaultHistory != nil {
			copied := *s.defaultHistory
			copied.SenderEmail = key
			return &copied, nil
		}
		return nil, core.ErrNotFound
	}
	copied := *history
	return &copied, nil
}

// SetDefaultHistory sets a synthetic history returned for unknown senders
func (s *MemoryStore) SetDefaultHistory(history *core.SenderHistory) {
	s.mu.Lock()
	s.defaultHistory = history
	s.mu.Unlock()
}

// RecordEmailReceived registers a sighting of a sender
func (s *MemoryStore) RecordEmailReceived(ctx context.Context, senderEmail string, at time.Time) error {
	key := normalizeKey(senderEmail)
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	history, ok := s.histories[key]
	if !ok {
		history = &core.SenderHistory{
			SenderEmail: key,
			FirstSeen:   at,
		}
		s.histories[key] = history
	}
	history.EmailsReceived++
	if at.After(history.LastInteraction) {
		history.LastInteraction = at
	}
	history.Version++
	s.mu.Unlock()

	s.epoch.Add(1)
	return nil
}

// RecordReply registers a reply-completion event for a sender
func (s *MemoryStore) RecordReply(ctx context.Context, senderEmail string, responseTime time.Duration) error {
	key := normalizeKey(senderEmail)
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()

	s.mu.Lock()
	history, ok := s.histories[key]
	if !ok {
		history = &core.SenderHistory{
			SenderEmail: key,
			FirstSeen:   now,
		}
		s.histories[key] = history
	}
	history.EmailsReplied++
	// A reply implies a received email; keep replied <= received
	if history.EmailsReplied > history.EmailsReceived {
		history.EmailsReceived = history.EmailsReplied
	}
	history.TotalResponseTime += responseTime
	history.LastInteraction = now
	history.Version++
	s.mu.Unlock()

	s.epoch.Add(1)

	s.logger.Debug("Recorded reply",
		zap.String("sender", key),
		zap.Duration("response_time", responseTime))
	return nil
}

// Epoch increases whenever store state changes
func (s *MemoryStore) Epoch() uint64 {
	return s.epoch.Load()
}

// PutHistory replaces the history record for a sender wholesale. Intended
// for seeding and tests; live updates go through the Record methods.
func (s *MemoryStore) PutHistory(ctx context.Context, history *core.SenderHistory) error {
	key := normalizeKey(history.SenderEmail)

	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	stored := *history
	stored.SenderEmail = key

	s.mu.Lock()
	s.histories[key] = &stored
	s.mu.Unlock()

	s.epoch.Add(1)
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// lockFor returns the per-sender mutex, creating it on first use
func (s *MemoryStore) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
