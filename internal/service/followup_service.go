package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/mapper"
	"github.com/haliqo/haliqo-api/internal/repository"
	"go.uber.org/zap"
)

// approachingWindowDays is how close a due date must be for medium priority
const approachingWindowDays = 3

// FollowUpFilter narrows classified follow-ups. Empty fields match all.
type FollowUpFilter struct {
	Type     domain.FollowUpType
	Priority domain.FollowUpPriority
}

func (f FollowUpFilter) matches(t domain.FollowUpType, p domain.FollowUpPriority) bool {
	if f.Type != "" && f.Type != t {
		return false
	}
	if f.Priority != "" && f.Priority != p {
		return false
	}
	return true
}

// FollowUpService lists invoice and quote follow-ups with their type and priority
type FollowUpService struct {
	repo   *repository.FollowUpRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewFollowUpService creates a new FollowUpService instance
func NewFollowUpService(repo *repository.FollowUpRepository, logger *zap.Logger) *FollowUpService {
	return &FollowUpService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ClassifyFollowUp derives type and priority. A stored meta type or priority
// wins over the computed one. ok is false when the stored type is not one of
// the permitted values; such records are dropped from listings.
func ClassifyFollowUp(meta domain.FollowUpMeta, stage int, dueDate *time.Time, today time.Time) (domain.FollowUpType, domain.FollowUpPriority, bool) {
	var days int
	hasDue := dueDate != nil && !dueDate.IsZero()
	if hasDue {
		days = daysBetween(today, *dueDate)
	}

	followUpType := meta.FollowUpType
	if followUpType == "" {
		followUpType = domain.FollowUpTypeApproachingDeadline
		if hasDue && days < 0 {
			followUpType = domain.FollowUpTypeOverdue
		}
	}
	if !followUpType.IsValid() {
		return "", "", false
	}

	if meta.Priority.IsValid() {
		return followUpType, meta.Priority, true
	}

	var priority domain.FollowUpPriority
	switch {
	case stage > 1:
		priority = domain.FollowUpPriorityHigh
	case followUpType == domain.FollowUpTypeOverdue:
		priority = domain.FollowUpPriorityHigh
	case hasDue && days <= approachingWindowDays:
		priority = domain.FollowUpPriorityMedium
	default:
		priority = domain.FollowUpPriorityLow
	}
	return followUpType, priority, true
}

// daysBetween counts calendar days from a to b, ignoring the time of day
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// ListInvoiceFollowUps returns follow-ups of invoices still awaiting payment
func (s *FollowUpService) ListInvoiceFollowUps(ctx context.Context, userID uuid.UUID, filter FollowUpFilter) ([]domain.FollowUpDTO, error) {
	followUps, err := s.repo.ListInvoiceFollowUps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice follow-ups: %w", err)
	}

	today := s.now()
	result := make([]domain.FollowUpDTO, 0, len(followUps))
	for i := range followUps {
		f := &followUps[i]
		if f.Invoice == nil || !f.Invoice.Status.IsOpen() {
			continue
		}
		followUpType, priority, ok := ClassifyFollowUp(f.Meta, f.Stage, f.Invoice.DueDate, today)
		if !ok {
			s.logger.Debug("Skipping follow-up with unknown type",
				zap.String("follow_up_id", f.ID.String()),
				zap.String("type", string(f.Meta.FollowUpType)),
			)
			continue
		}
		if !filter.matches(followUpType, priority) {
			continue
		}
		result = append(result, mapper.ToInvoiceFollowUpDTO(f, followUpType, priority))
	}
	return result, nil
}

// ListQuoteFollowUps returns follow-ups of quotes still awaiting a decision.
// The quote validity date plays the role of the due date.
func (s *FollowUpService) ListQuoteFollowUps(ctx context.Context, userID uuid.UUID, filter FollowUpFilter) ([]domain.FollowUpDTO, error) {
	followUps, err := s.repo.ListQuoteFollowUps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quote follow-ups: %w", err)
	}

	today := s.now()
	result := make([]domain.FollowUpDTO, 0, len(followUps))
	for i := range followUps {
		f := &followUps[i]
		if f.Quote == nil || !f.Quote.Status.IsPending() {
			continue
		}
		followUpType, priority, ok := ClassifyFollowUp(f.Meta, f.Stage, f.Quote.ValidUntil, today)
		if !ok || !filter.matches(followUpType, priority) {
			continue
		}
		result = append(result, mapper.ToQuoteFollowUpDTO(f, followUpType, priority))
	}
	return result, nil
}
