package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/email"
	"github.com/haliqo/haliqo-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// languageMatcher negotiates Accept-Language against the template languages.
// The first tag is the fallback when nothing matches.
var languageMatcher = language.NewMatcher([]language.Tag{
	language.French,
	language.English,
	language.Dutch,
})

// NotificationRequest describes one transactional email. Plan and date
// fields are turned into template variables; non-empty Vars fields win over
// the computed ones.
type NotificationRequest struct {
	Type           domain.NotificationType
	UserID         *uuid.UUID
	Email          string
	Language       string
	AcceptLanguage string
	PlanType       string
	OldPlanType    string
	NewPlanType    string
	BillingCycle   domain.BillingCycle
	TrialEnd       *time.Time
	PeriodEnd      *time.Time
	EffectiveDate  *time.Time
	Vars           TemplateVars
}

// NotificationSettings are the static values every template can reference
type NotificationSettings struct {
	AppURL       string
	SupportEmail string
}

// NotificationService resolves, renders and sends transactional emails and
// records every attempt.
type NotificationService struct {
	userRepo         *repository.UserRepository
	templateRepo     *repository.EmailTemplateRepository
	notificationRepo *repository.NotificationRepository
	pricing          *PricingService
	sender           email.Sender
	settings         NotificationSettings
	logger           *zap.Logger
	now              func() time.Time
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	userRepo *repository.UserRepository,
	templateRepo *repository.EmailTemplateRepository,
	notificationRepo *repository.NotificationRepository,
	pricing *PricingService,
	sender email.Sender,
	settings NotificationSettings,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		userRepo:         userRepo,
		templateRepo:     templateRepo,
		notificationRepo: notificationRepo,
		pricing:          pricing,
		sender:           sender,
		settings:         settings,
		logger:           logger,
		now:              time.Now,
	}
}

// Send renders and delivers a notification. A delivery failure is returned
// to the caller after the attempt has been recorded.
func (s *NotificationService) Send(ctx context.Context, req NotificationRequest) error {
	if !req.Type.IsValid() {
		return fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, req.Type)
	}

	var user *domain.User
	if req.UserID != nil {
		u, err := s.userRepo.GetByID(ctx, *req.UserID)
		switch {
		case err == nil:
			user = u
		case errors.Is(err, gorm.ErrRecordNotFound):
			if req.Email == "" {
				return ErrUserNotFound
			}
		default:
			return fmt.Errorf("failed to get user: %w", err)
		}
	}

	to := domain.NormalizeEmail(req.Email)
	if to == "" && user != nil {
		to = user.Email
	}
	if to == "" {
		return fmt.Errorf("%w: no recipient", ErrInvalidInput)
	}

	lang := s.resolveLanguage(req, user)
	log := s.logger.With(
		zap.String("notification_type", string(req.Type)),
		zap.String("email", to),
		zap.String("language", lang),
	)

	msg, err := s.render(ctx, req, user, to, lang)
	if err != nil {
		log.Warn("Failed to render notification", zap.Error(err))
		s.record(ctx, req, user, to, lang, err)
		return err
	}

	sendErr := s.sender.Send(ctx, msg)
	s.record(ctx, req, user, to, lang, sendErr)
	if sendErr != nil {
		log.Error("Failed to send notification", zap.Error(sendErr))
		return fmt.Errorf("%w: %s email: %w", ErrDeliveryFailed, req.Type, sendErr)
	}

	log.Info("Notification sent")
	return nil
}

func (s *NotificationService) render(ctx context.Context, req NotificationRequest, user *domain.User, to, lang string) (*email.Message, error) {
	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}

	tmpl, err := s.resolveTemplate(ctx, userID, req.Type, lang)
	if err != nil {
		return nil, err
	}

	vars := s.buildVars(ctx, req, user, to, lang)
	return renderTemplate(tmpl, to, vars)
}

// resolveTemplate walks the fallback chain: the user's own template, the
// default for the language, the French default, any active template of the
// type, then the built-in templates.
func (s *NotificationService) resolveTemplate(ctx context.Context, userID *uuid.UUID, templateType domain.NotificationType, lang string) (*domain.EmailTemplate, error) {
	lookups := make([]func() (*domain.EmailTemplate, error), 0, 4)
	if userID != nil {
		lookups = append(lookups, func() (*domain.EmailTemplate, error) {
			return s.templateRepo.FindForUser(ctx, *userID, templateType, lang)
		})
	}
	lookups = append(lookups, func() (*domain.EmailTemplate, error) {
		return s.templateRepo.FindDefault(ctx, templateType, lang)
	})
	if lang != domain.DefaultLanguage {
		lookups = append(lookups, func() (*domain.EmailTemplate, error) {
			return s.templateRepo.FindDefault(ctx, templateType, domain.DefaultLanguage)
		})
	}
	lookups = append(lookups, func() (*domain.EmailTemplate, error) {
		return s.templateRepo.FindAnyActive(ctx, templateType)
	})

	for _, lookup := range lookups {
		tmpl, err := lookup()
		if err == nil {
			return tmpl, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load email template: %w", err)
		}
	}

	if tmpl, ok := builtinTemplate(templateType, lang); ok {
		return tmpl, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateType)
}

// resolveLanguage prefers the explicit request language, then the user's
// saved language, then Accept-Language, then French.
func (s *NotificationService) resolveLanguage(req NotificationRequest, user *domain.User) string {
	if lang, ok := supportedLanguage(req.Language); ok {
		return lang
	}
	if user != nil {
		if lang, ok := supportedLanguage(user.Language); ok {
			return lang
		}
	}
	return NegotiateLanguage(req.AcceptLanguage)
}

// NegotiateLanguage matches an Accept-Language header against the template
// languages, defaulting to French.
func NegotiateLanguage(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return domain.DefaultLanguage
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return domain.DefaultLanguage
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return domain.DefaultLanguage
	}
	return domain.SupportedLanguages[index]
}

func supportedLanguage(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	for _, lang := range domain.SupportedLanguages {
		if base.String() == lang {
			return lang, true
		}
	}
	return "", false
}

func (s *NotificationService) buildVars(ctx context.Context, req NotificationRequest, user *domain.User, to, lang string) TemplateVars {
	vars := req.Vars
	vars.UserEmail = firstNonEmpty(vars.UserEmail, to)
	vars.AppURL = firstNonEmpty(vars.AppURL, s.settings.AppURL)
	vars.SupportEmail = firstNonEmpty(vars.SupportEmail, s.settings.SupportEmail)

	cycle := req.BillingCycle
	if user != nil {
		vars.UserName = firstNonEmpty(vars.UserName, user.FullName())
		vars.FirstName = firstNonEmpty(vars.FirstName, user.FirstName)
		if cycle == "" {
			cycle = user.BillingCycle
		}
		if req.PlanType == "" && req.NewPlanType == "" {
			req.PlanType = user.SelectedPlan
		}
	}
	vars.UserName = firstNonEmpty(vars.UserName, to)
	if cycle != "" {
		vars.BillingCycle = firstNonEmpty(vars.BillingCycle, cycleLabel(cycle, lang))
	}

	planType := firstNonEmpty(req.PlanType, req.NewPlanType)
	if planType != "" {
		name, amount := s.planVars(ctx, planType, cycle, lang)
		vars.PlanName = firstNonEmpty(vars.PlanName, name)
		vars.PlanAmount = firstNonEmpty(vars.PlanAmount, amount)
	}
	if req.OldPlanType != "" {
		name, amount := s.planVars(ctx, req.OldPlanType, cycle, lang)
		vars.OldPlanName = firstNonEmpty(vars.OldPlanName, name)
		vars.OldPlanAmount = firstNonEmpty(vars.OldPlanAmount, amount)
	}
	if req.NewPlanType != "" {
		name, amount := s.planVars(ctx, req.NewPlanType, cycle, lang)
		vars.NewPlanName = firstNonEmpty(vars.NewPlanName, name)
		vars.NewPlanAmount = firstNonEmpty(vars.NewPlanAmount, amount)
	}

	if req.TrialEnd != nil {
		vars.TrialEndDate = firstNonEmpty(vars.TrialEndDate, formatDateFor(*req.TrialEnd, lang))
	} else if user != nil && user.TrialEnd != nil {
		vars.TrialEndDate = firstNonEmpty(vars.TrialEndDate, formatDateFor(*user.TrialEnd, lang))
	}
	if req.PeriodEnd != nil {
		vars.PeriodEndDate = firstNonEmpty(vars.PeriodEndDate, formatDateFor(*req.PeriodEnd, lang))
	}
	if req.EffectiveDate != nil {
		vars.EffectiveDate = firstNonEmpty(vars.EffectiveDate, formatDateFor(*req.EffectiveDate, lang))
	} else {
		vars.EffectiveDate = firstNonEmpty(vars.EffectiveDate, formatDateFor(s.now(), lang))
	}
	return vars
}

func (s *NotificationService) planVars(ctx context.Context, planType string, cycle domain.BillingCycle, lang string) (string, string) {
	catalog, err := s.pricing.GetPricing(ctx)
	if err != nil {
		s.logger.Warn("Pricing unavailable for notification", zap.String("plan_type", planType), zap.Error(err))
		return DisplayPlanName(planType), ""
	}
	plan, ok := catalog.Plan(planType)
	if !ok {
		return DisplayPlanName(planType), ""
	}
	if cycle == "" {
		cycle = domain.BillingCycleMonthly
	}
	return plan.Name, formatAmount(plan.Amount(cycle), catalog.Currency, lang)
}

func (s *NotificationService) record(ctx context.Context, req NotificationRequest, user *domain.User, to, lang string, sendErr error) {
	entry := &domain.NotificationLog{
		NotificationType: req.Type,
		Email:            to,
		Language:         lang,
		Success:          sendErr == nil,
		SentAt:           s.now().UTC(),
	}
	switch {
	case user != nil:
		entry.UserID = &user.ID
	case req.UserID != nil:
		entry.UserID = req.UserID
	}
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
	}
	if err := s.notificationRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("Failed to record notification attempt",
			zap.String("notification_type", string(req.Type)),
			zap.Error(err),
		)
	}
}

// SentSince reports whether a notification of the type was delivered to the
// user after the given time.
func (s *NotificationService) SentSince(ctx context.Context, userID uuid.UUID, notificationType domain.NotificationType, since time.Time) (bool, error) {
	sent, err := s.notificationRepo.HasSuccessfulSince(ctx, userID, notificationType, since)
	if err != nil {
		return false, fmt.Errorf("failed to read notification history: %w", err)
	}
	return sent, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
