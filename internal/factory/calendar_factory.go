package factory

import (
	"fmt"

	"github.com/mikey/email-priority/internal/adapters/calendar"
	"github.com/mikey/email-priority/internal/config"
	"github.com/mikey/email-priority/internal/core"
	"go.uber.org/zap"
)

// CalendarFactory creates calendar availability checkers
type CalendarFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCalendarFactory creates a new calendar factory
func NewCalendarFactory(cfg *config.Config, logger *zap.Logger) *CalendarFactory {
	return &CalendarFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChecker creates a calendar checker, or nil when no endpoint is
// configured so the calendar scorer falls back to its keyword heuristics
func (f *CalendarFactory) CreateChecker() (core.CalendarChecker, error) {
	endpoint := f.cfg.GetString("calendar.endpoint")
	if endpoint == "" {
		f.logger.Info("No calendar endpoint configured, meeting scores use keyword heuristics only")
		return nil, nil
	}

	timeout, err := f.cfg.GetDuration("calendar.timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid calendar timeout: %w", err)
	}

	return calendar.NewHTTPChecker(endpoint, timeout, f.logger), nil
}
