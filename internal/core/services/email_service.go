package services

import (
	"context"
	"log/slog"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

const (
	DefaultFetchDaysBack    = 1
	DefaultFetchMaxEmails   = 100
	DefaultRecentEmails     = 10
	DefaultUnprocessedLimit = 50
	DefaultCategoryLimit    = 50
)

// EmailService proxies the email-ingestion pipeline of the external
// backend. Without a gateway every call fails with ErrNotConfigured.
type EmailService struct {
	gateway ports.EmailGateway
	logger  *slog.Logger
}

var _ ports.EmailService = (*EmailService)(nil)

func NewEmailService(gateway ports.EmailGateway, opts ...Option) *EmailService {
	o := applyOptions(opts)
	return &EmailService{
		gateway: gateway,
		logger:  o.Logger.With("component", "email_service"),
	}
}

// TriggerFetch asks the pipeline to pull new mail and create tickets for
// SAP-related messages.
func (s *EmailService) TriggerFetch(ctx context.Context, daysBack, maxEmails int) (*domain.FetchResult, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrNotConfigured
	}
	if daysBack <= 0 {
		daysBack = DefaultFetchDaysBack
	}
	if maxEmails <= 0 {
		maxEmails = DefaultFetchMaxEmails
	}

	result, err := s.gateway.TriggerFetch(ctx, domain.FetchRequest{DaysBack: daysBack, MaxEmails: maxEmails})
	if err != nil {
		return nil, err
	}
	s.logger.Info("email fetch completed",
		"fetched", result.Fetched,
		"sap_related", result.SAPRelated,
		"tickets_created", result.TicketsCreated,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *EmailService) Stats(ctx context.Context) (*domain.EmailStats, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrNotConfigured
	}
	return s.gateway.Stats(ctx)
}

func (s *EmailService) Recent(ctx context.Context, limit int) ([]*domain.EmailRecord, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrNotConfigured
	}
	if limit <= 0 {
		limit = DefaultRecentEmails
	}
	return s.gateway.Recent(ctx, limit)
}

func (s *EmailService) Unprocessed(ctx context.Context, limit int) ([]*domain.EmailRecord, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrNotConfigured
	}
	if limit <= 0 {
		limit = DefaultUnprocessedLimit
	}
	return s.gateway.Unprocessed(ctx, limit)
}

// ByCategory lists emails the classifier filed under an SAP module, newest
// first. The category is matched case-insensitively against the module codes.
func (s *EmailService) ByCategory(ctx context.Context, category string, skip, limit int) ([]*domain.EmailRecord, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrNotConfigured
	}
	module, ok := domain.ParseModule(category)
	if !ok || skip < 0 {
		return nil, apperrors.ErrInvalidInput
	}
	if limit <= 0 {
		limit = DefaultCategoryLimit
	}
	return s.gateway.ByCategory(ctx, module, skip, limit)
}

func (s *EmailService) Reprocess(ctx context.Context, id int64) (*domain.ReprocessResult, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrNotConfigured
	}
	if id <= 0 {
		return nil, apperrors.ErrInvalidInput
	}
	return s.gateway.Reprocess(ctx, id)
}
