package ports

import (
	"context"

	"github.com/mikey/email-priority/internal/core"
)

// EmailIngress defines the interface for email ingestion front-ends
type EmailIngress interface {
	// ProcessEmail scores a single email and returns the result
	ProcessEmail(ctx context.Context, email *core.Email) (*core.ScoreResult, error)

	// Start starts the ingress service
	Start() error

	// Stop stops the ingress service
	Stop() error
}
