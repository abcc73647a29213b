package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/email-priority/internal/core"
	"go.uber.org/zap"
)

// Writer is the registry side that accepts new contact entries
type Writer interface {
	PutContact(ctx context.Context, contact *core.Contact) error
}

var validLevels = map[core.AuthorityLevel]bool{
	core.AuthorityVIP:       true,
	core.AuthorityManager:   true,
	core.AuthorityClient:    true,
	core.AuthorityRecruiter: true,
	core.AuthorityNormal:    true,
}

// Seeder loads configured contact entries into the registry at startup
type Seeder struct {
	registry Writer
	logger   *zap.Logger
}

// NewSeeder creates a new contact seeder
func NewSeeder(registry Writer, logger *zap.Logger) *Seeder {
	return &Seeder{
		registry: registry,
		logger:   logger,
	}
}

// Seed parses entries of the form "identity=level" or
// "identity=level:Display Name:Title" and writes them to the registry.
// The identity may be a full email address or a bare domain.
func (s *Seeder) Seed(ctx context.Context, entries []string) error {
	seeded := 0
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		contact, err := ParseEntry(entry)
		if err != nil {
			return fmt.Errorf("invalid contact entry %q: %w", entry, err)
		}

		if err := s.registry.PutContact(ctx, contact); err != nil {
			return fmt.Errorf("failed to seed contact %q: %w", contact.Key, err)
		}
		seeded++
	}

	if seeded > 0 {
		s.logger.Info("Seeded contact registry", zap.Int("contacts", seeded))
	}
	return nil
}

// ParseEntry parses a single seed entry into a contact
func ParseEntry(entry string) (*core.Contact, error) {
	identity, rest, found := strings.Cut(entry, "=")
	if !found {
		return nil, fmt.Errorf("expected identity=level")
	}

	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return nil, fmt.Errorf("empty identity")
	}

	fields := strings.SplitN(rest, ":", 3)
	level := core.AuthorityLevel(strings.ToLower(strings.TrimSpace(fields[0])))
	if !validLevels[level] {
		return nil, fmt.Errorf("unknown authority level %q", fields[0])
	}

	contact := &core.Contact{
		Key:   identity,
		Level: level,
	}
	if len(fields) > 1 {
		contact.Name = strings.TrimSpace(fields[1])
	}
	if len(fields) > 2 {
		contact.Title = strings.TrimSpace(fields[2])
	}
	return contact, nil
}
