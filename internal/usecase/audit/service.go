// Package audit appends and reads the immutable audit trail.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	domainaudit "viberate/internal/domain/audit"
	"viberate/internal/errs"
	"viberate/internal/ports"
)

type Service struct {
	repo ports.AuditRepository
	now  func() time.Time
}

var _ ports.AuditRecorder = (*Service)(nil)

func NewService(repo ports.AuditRepository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errors.New("audit repository is required")
	}
	return nil
}

// Record appends one entry. The action must belong to the closed taxonomy;
// request metadata comes from rec.Request or, failing that, the context.
func (s *Service) Record(ctx context.Context, rec domainaudit.Record) (domainaudit.Entry, error) {
	if err := s.check(ctx); err != nil {
		return domainaudit.Entry{}, err
	}
	if _, err := domainaudit.ParseAction(string(rec.Action)); err != nil {
		return domainaudit.Entry{}, err
	}

	entry := domainaudit.Entry{
		Action:       rec.Action,
		Timestamp:    s.now(),
		ResourceType: strings.TrimSpace(rec.ResourceType),
		ResourceID:   strings.TrimSpace(rec.ResourceID),
		Details:      rec.Details,
		Success:      rec.Success,
		ErrorMessage: rec.ErrorMessage,
	}
	if actor := strings.TrimSpace(rec.ActorID); actor != "" {
		entry.ActorID = &actor
	}

	req, ok := domainaudit.RequestFromContext(ctx)
	if rec.Request != nil {
		req, ok = *rec.Request, true
	}
	if ok {
		entry.IPAddress = req.ClientIP()
		entry.UserAgent = domainaudit.TruncateUserAgent(req.UserAgent)
	}

	return s.repo.AppendEntry(ctx, entry)
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, filter domainaudit.Filter) ([]domainaudit.Entry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if filter.Action != "" {
		if _, err := domainaudit.ParseAction(string(filter.Action)); err != nil {
			return nil, err
		}
	}
	return s.repo.ListEntries(ctx, filter)
}

// Update always fails for an existing entry with ErrImmutableRecord.
func (s *Service) Update(ctx context.Context, entry domainaudit.Entry) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.repo.UpdateEntry(ctx, entry)
}

// Delete always fails for an existing entry with ErrImmutableRecord.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.repo.DeleteEntry(ctx, id)
}
