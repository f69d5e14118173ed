package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
)

// openFollowUpStatuses are follow-ups that still need action
var openFollowUpStatuses = []string{"pending", "scheduled", "ready"}

type FollowUpRepository struct {
	db *gorm.DB
}

func NewFollowUpRepository(db *gorm.DB) *FollowUpRepository {
	return &FollowUpRepository{db: db}
}

// ListInvoiceFollowUps returns open invoice follow-ups with invoice and client preloaded
func (r *FollowUpRepository) ListInvoiceFollowUps(ctx context.Context, userID uuid.UUID) ([]domain.InvoiceFollowUp, error) {
	var followUps []domain.InvoiceFollowUp
	err := r.db.WithContext(ctx).
		Preload("Invoice").
		Preload("Invoice.Client").
		Where("user_id = ? AND status IN ?", userID, openFollowUpStatuses).
		Order("scheduled_at ASC").
		Find(&followUps).Error
	return followUps, err
}

// ListQuoteFollowUps returns open quote follow-ups with quote and client preloaded
func (r *FollowUpRepository) ListQuoteFollowUps(ctx context.Context, userID uuid.UUID) ([]domain.QuoteFollowUp, error) {
	var followUps []domain.QuoteFollowUp
	err := r.db.WithContext(ctx).
		Preload("Quote").
		Preload("Quote.Client").
		Where("user_id = ? AND status IN ?", userID, openFollowUpStatuses).
		Order("scheduled_at ASC").
		Find(&followUps).Error
	return followUps, err
}

func (r *FollowUpRepository) CreateInvoiceFollowUp(ctx context.Context, followUp *domain.InvoiceFollowUp) error {
	return r.db.WithContext(ctx).Create(followUp).Error
}

func (r *FollowUpRepository) CreateQuoteFollowUp(ctx context.Context, followUp *domain.QuoteFollowUp) error {
	return r.db.WithContext(ctx).Create(followUp).Error
}
