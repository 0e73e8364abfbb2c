package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/adapters/filter"
	"github.com/mikey/nb-spam-filter/internal/config"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/ports"
	"github.com/mikey/nb-spam-filter/internal/utils"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	spamService   *core.SpamFilterService
	textProcessor *utils.TextProcessor
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(
	cfg *config.Config,
	logger *zap.Logger,
	spamService *core.SpamFilterService,
	textProcessor *utils.TextProcessor,
) *FilterFactory {
	return &FilterFactory{
		cfg:           cfg,
		logger:        logger,
		spamService:   spamService,
		textProcessor: textProcessor,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	server := f.cfg.GetServer()

	switch server.FilterType {
	case "postfix":
		return filter.NewPostfixFilter(f.spamService, f.logger, f.textProcessor, filter.PostfixOptions{
			ListenAddr:     server.ListenAddress,
			BlockSpam:      server.BlockSpam,
			SpamHeader:     server.Headers.Spam,
			ScoreHeader:    server.Headers.Score,
			ReasonHeader:   server.Headers.Reason,
			PostfixAddr:    server.Postfix.Address,
			PostfixPort:    server.Postfix.Port,
			PostfixEnabled: server.Postfix.Enabled,
			SubjectPrefix:  server.SubjectPrefix,
			ModifySubject:  server.ModifySubject,
		}), nil
	case "http":
		return filter.NewHTTPFilter(f.spamService, f.logger, f.textProcessor, server.HTTPAddress), nil
	case "cli":
		return filter.NewCliFilter(
			f.spamService,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", server.FilterType)
	}
}
