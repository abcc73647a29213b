package factory

import (
	"fmt"

	"github.com/mikey/email-priority/internal/adapters/filter"
	"github.com/mikey/email-priority/internal/config"
	"github.com/mikey/email-priority/internal/core"
	"github.com/mikey/email-priority/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates email ingresses based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.PriorityService
	history core.SenderHistoryStore
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.PriorityService, history core.SenderHistoryStore) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
		history: history,
	}
}

// CreateIngress creates an email ingress based on the configuration
func (f *FilterFactory) CreateIngress() (ports.EmailIngress, error) {
	ingressType := f.cfg.GetString("server.ingress_type")

	switch ingressType {
	case "smtp":
		return filter.NewSMTPFilter(
			f.service,
			f.history,
			f.logger,
			f.cfg.GetString("server.listen_address"),
			f.cfg.GetString("server.headers.score"),
			f.cfg.GetString("server.headers.label"),
			f.cfg.GetString("server.headers.confidence"),
			f.cfg.GetString("server.headers.reason"),
			f.cfg.GetString("server.relay.address"),
			f.cfg.GetInt("server.relay.port"),
			f.cfg.GetBool("server.relay.enabled"),
			f.cfg.GetString("server.subject_prefix"),
			f.cfg.GetBool("server.tag_critical_subject"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported ingress type: %s", ingressType)
	}
}
