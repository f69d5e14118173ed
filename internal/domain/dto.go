package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserDTO is the account view returned to the owner
type UserDTO struct {
	ID                    uuid.UUID          `json:"id"`
	Email                 string             `json:"email"`
	FirstName             string             `json:"firstName"`
	LastName              string             `json:"lastName"`
	Phone                 string             `json:"phone,omitempty"`
	Country               string             `json:"country,omitempty"`
	Professions           []string           `json:"professions"`
	BusinessSize          string             `json:"businessSize,omitempty"`
	SelectedPlan          string             `json:"selectedPlan,omitempty"`
	BillingCycle          BillingCycle       `json:"billingCycle,omitempty"`
	SubscriptionStatus    SubscriptionStatus `json:"subscriptionStatus"`
	TrialEnd              string             `json:"trialEnd,omitempty"` // ISO 8601
	Language              string             `json:"language"`
	RegistrationCompleted bool               `json:"registrationCompleted"`
}

// AccountDTO is the signed-in user with the module access of their profile
type AccountDTO struct {
	User        UserDTO     `json:"user"`
	Role        ProfileRole `json:"role,omitempty"`
	Permissions Permissions `json:"permissions"`
	IsActive    bool        `json:"isActive"`
}

// NotificationLogDTO is one delivery attempt of a transactional email
type NotificationLogDTO struct {
	ID               uuid.UUID        `json:"id"`
	NotificationType NotificationType `json:"notificationType"`
	Email            string           `json:"email"`
	Language         string           `json:"language,omitempty"`
	Success          bool             `json:"success"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
	SentAt           string           `json:"sentAt"`
}

// SubscriptionDTO is the subscription view
type SubscriptionDTO struct {
	ID                 uuid.UUID          `json:"id"`
	PlanType           string             `json:"planType"`
	PlanName           string             `json:"planName"`
	Interval           BillingCycle       `json:"interval"`
	Amount             decimal.Decimal    `json:"amount"`
	Currency           string             `json:"currency"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart string             `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   string             `json:"currentPeriodEnd,omitempty"`
	TrialEnd           string             `json:"trialEnd,omitempty"`
	CancelAtPeriodEnd  bool               `json:"cancelAtPeriodEnd"`
}

// CompanyProfileDTO is the company profile view
type CompanyProfileDTO struct {
	ID          uuid.UUID `json:"id"`
	CompanyName string    `json:"companyName"`
	VATNumber   string    `json:"vatNumber,omitempty"`
	Address     string    `json:"address"`
	PostalCode  string    `json:"postalCode"`
	City        string    `json:"city"`
	State       string    `json:"state,omitempty"`
	Country     string    `json:"country"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Website     string    `json:"website,omitempty"`
	LogoPath    string    `json:"logoPath,omitempty"`
	IsDefault   bool      `json:"isDefault"`
	UpdatedAt   string    `json:"updatedAt"`
}

// FollowUpDTO is a classified follow-up for invoices or quotes
type FollowUpDTO struct {
	ID           uuid.UUID        `json:"id"`
	DocumentID   uuid.UUID        `json:"documentId"`
	Number       string           `json:"number"`
	Title        string           `json:"title"`
	ClientName   string           `json:"clientName,omitempty"`
	ClientEmail  string           `json:"clientEmail,omitempty"`
	Amount       decimal.Decimal  `json:"amount"`
	DueDate      string           `json:"dueDate,omitempty"` // YYYY-MM-DD
	Stage        int              `json:"stage"`
	Status       string           `json:"status"`
	FollowUpType FollowUpType     `json:"followUpType"`
	Priority     FollowUpPriority `json:"priority"`
	ScheduledAt  string           `json:"scheduledAt,omitempty"`
}

// ValidateStepRequest asks for validation of one registration step
type ValidateStepRequest struct {
	Step int              `json:"step" validate:"required,min=1,max=3"`
	Form RegistrationForm `json:"form"`
}

// StepResultDTO is the outcome of step validation
type StepResultDTO struct {
	Valid    bool              `json:"valid"`
	Errors   map[string]string `json:"errors,omitempty"`
	Resuming bool              `json:"resuming"`
	Prefill  *RegistrationForm `json:"prefill,omitempty"`
}

// SubmitRegistrationResponse tells the client where to pay
type SubmitRegistrationResponse struct {
	UserID            uuid.UUID `json:"userId"`
	CheckoutSessionID string    `json:"checkoutSessionId"`
	CheckoutURL       string    `json:"checkoutUrl"`
	Resumed           bool      `json:"resumed"`
}

// RegistrationStatusDTO is the registration session view
type RegistrationStatusDTO struct {
	UserID                uuid.UUID          `json:"userId"`
	Pending               bool               `json:"pending"`
	Completed             bool               `json:"completed"`
	CheckoutSessionID     string             `json:"checkoutSessionId,omitempty"`
	SubscriptionStatus    SubscriptionStatus `json:"subscriptionStatus"`
	RegistrationCompleted bool               `json:"registrationCompleted"`
}

// CreateCheckoutRequest starts a checkout for the signed-in user
type CreateCheckoutRequest struct {
	PlanType     string       `json:"planType" validate:"required,max=30"`
	BillingCycle BillingCycle `json:"billingCycle" validate:"required,oneof=monthly yearly"`
}

// ChangePlanRequest switches the plan of an existing subscription
type ChangePlanRequest struct {
	PlanType     string       `json:"planType" validate:"required,max=30"`
	BillingCycle BillingCycle `json:"billingCycle" validate:"required,oneof=monthly yearly"`
}

// CompleteCheckoutRequest is sent by the client after the payment redirect
type CompleteCheckoutRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=200"`
}

// CheckoutResponse carries the hosted checkout or portal URL
type CheckoutResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	URL       string `json:"url"`
}

// CompletionResponse summarizes a completed registration
type CompletionResponse struct {
	UserID         uuid.UUID          `json:"userId"`
	SubscriptionID uuid.UUID          `json:"subscriptionId"`
	Status         SubscriptionStatus `json:"status"`
	AlreadyDone    bool               `json:"alreadyDone"`
}

// GenerateOTPRequest asks for a verification code
type GenerateOTPRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Language string `json:"language,omitempty" validate:"omitempty,oneof=fr en nl"`
}

// VerifyOTPRequest submits a verification code
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// OTPResponse reports the outcome of an OTP call
type OTPResponse struct {
	Success   bool      `json:"success"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Verified  bool      `json:"verified,omitempty"`
}

// SendEmailRequest triggers a transactional email (send-emails)
type SendEmailRequest struct {
	EmailType NotificationType `json:"emailType" validate:"required"`
	EmailData SendEmailData    `json:"emailData"`
}

// SendEmailData is the typed payload of SendEmailRequest
type SendEmailData struct {
	UserID        *uuid.UUID `json:"userId,omitempty"`
	UserEmail     string     `json:"userEmail" validate:"omitempty,email"`
	UserName      string     `json:"userName,omitempty"`
	Language      string     `json:"language,omitempty" validate:"omitempty,oneof=fr en nl"`
	PlanType      string     `json:"planType,omitempty"`
	OldPlanType   string     `json:"oldPlanType,omitempty"`
	NewPlanType   string     `json:"newPlanType,omitempty"`
	BillingCycle  string     `json:"billingCycle,omitempty"`
	TrialEndDate  string     `json:"trialEndDate,omitempty"`
	EffectiveDate string     `json:"effectiveDate,omitempty"`
}

// SendEmailResponse reports whether the email was accepted by the relay
type SendEmailResponse struct {
	Success bool `json:"success"`
}

// FollowUpListResponse wraps classified follow-ups
type FollowUpListResponse struct {
	Data  []FollowUpDTO `json:"data"`
	Total int           `json:"total"`
}

// ActionResponse is returned by billing actions without a URL
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
