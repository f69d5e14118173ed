package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BaseModel with common fields. IDs are generated in Go so the same models
// work against PostgreSQL and SQLite.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// BeforeCreate assigns a new ID when none is set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// SubscriptionStatus is the billing state of an account
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// BillingCycle is the subscription interval
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// IsValid reports whether the cycle is one of the supported intervals
func (c BillingCycle) IsValid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

// User is the account row. Its ID equals the identity provider's user ID.
type User struct {
	ID                    uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Email                 string             `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FirstName             string             `gorm:"type:varchar(100);column:first_name" json:"firstName"`
	LastName              string             `gorm:"type:varchar(100);column:last_name" json:"lastName"`
	Phone                 string             `gorm:"type:varchar(30)" json:"phone,omitempty"`
	VATNumber             string             `gorm:"type:varchar(50);column:vat_number" json:"vatNumber,omitempty"`
	Country               string             `gorm:"type:varchar(2)" json:"country,omitempty"`
	Professions           []string           `gorm:"type:jsonb;serializer:json" json:"professions"`
	BusinessSize          string             `gorm:"type:varchar(30);column:business_size" json:"businessSize,omitempty"`
	SelectedPlan          string             `gorm:"type:varchar(30);column:selected_plan" json:"selectedPlan,omitempty"`
	BillingCycle          BillingCycle       `gorm:"type:varchar(10);column:billing_cycle" json:"billingCycle,omitempty"`
	SubscriptionStatus    SubscriptionStatus `gorm:"type:varchar(20);not null;default:'pending';column:subscription_status" json:"subscriptionStatus"`
	TrialStart            *time.Time         `gorm:"column:trial_start" json:"trialStart,omitempty"`
	TrialEnd              *time.Time         `gorm:"column:trial_end" json:"trialEnd,omitempty"`
	StripeCustomerID      string             `gorm:"type:varchar(100);column:stripe_customer_id" json:"-"`
	StripeSubscriptionID  string             `gorm:"type:varchar(100);column:stripe_subscription_id" json:"-"`
	Language              string             `gorm:"type:varchar(5);not null;default:'fr'" json:"language"`
	RegistrationCompleted bool               `gorm:"not null;default:false;column:registration_completed" json:"registrationCompleted"`
	CreatedAt             time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt             time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// FullName returns "First Last", falling back to the email
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// CompanyProfile holds the artisan's business identity. A user owns exactly
// one default profile; user_id is unique.
type CompanyProfile struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"userId"`
	CompanyName string    `gorm:"type:varchar(200);not null;column:company_name" json:"companyName"`
	VATNumber   string    `gorm:"type:varchar(50);column:vat_number" json:"vatNumber,omitempty"`
	Address     string    `gorm:"type:varchar(500)" json:"address"`
	PostalCode  string    `gorm:"type:varchar(20);column:postal_code" json:"postalCode"`
	City        string    `gorm:"type:varchar(100)" json:"city"`
	State       string    `gorm:"type:varchar(100)" json:"state,omitempty"`
	Country     string    `gorm:"type:varchar(2)" json:"country"`
	Phone       string    `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Email       string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Website     string    `gorm:"type:varchar(255)" json:"website,omitempty"`
	IBAN        string    `gorm:"type:varchar(50);column:iban" json:"iban,omitempty"`
	AccountName string    `gorm:"type:varchar(200);column:account_name" json:"accountName,omitempty"`
	BankName    string    `gorm:"type:varchar(200);column:bank_name" json:"bankName,omitempty"`
	LogoPath    string    `gorm:"type:varchar(500);column:logo_path" json:"logoPath,omitempty"`
	IsDefault   bool      `gorm:"not null;default:true;column:is_default" json:"isDefault"`
}

// ProfileRole is the role of a user profile within an account
type ProfileRole string

const (
	ProfileRoleAdmin  ProfileRole = "admin"
	ProfileRoleMember ProfileRole = "member"
)

// UserProfile is the per-account profile carrying module permissions
type UserProfile struct {
	BaseModel
	UserID      uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"userId"`
	Name        string      `gorm:"type:varchar(200);not null" json:"name"`
	Email       string      `gorm:"type:varchar(255)" json:"email"`
	Role        ProfileRole `gorm:"type:varchar(20);not null" json:"role"`
	Permissions Permissions `gorm:"type:jsonb;serializer:json" json:"permissions"`
	IsActive    bool        `gorm:"not null;column:is_active" json:"isActive"`
}

// Subscription is the single subscription row of a user
type Subscription struct {
	BaseModel
	UserID               uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"userId"`
	PlanType             string             `gorm:"type:varchar(30);not null;column:plan_type" json:"planType"`
	PlanName             string             `gorm:"type:varchar(100);not null;column:plan_name" json:"planName"`
	Interval             BillingCycle       `gorm:"type:varchar(10);not null" json:"interval"`
	Amount               decimal.Decimal    `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency             string             `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status               SubscriptionStatus `gorm:"type:varchar(20);not null" json:"status"`
	CurrentPeriodStart   *time.Time         `gorm:"column:current_period_start" json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time         `gorm:"column:current_period_end" json:"currentPeriodEnd,omitempty"`
	TrialStart           *time.Time         `gorm:"column:trial_start" json:"trialStart,omitempty"`
	TrialEnd             *time.Time         `gorm:"column:trial_end" json:"trialEnd,omitempty"`
	StripeSubscriptionID string             `gorm:"type:varchar(100);column:stripe_subscription_id;index" json:"-"`
	StripeCustomerID     string             `gorm:"type:varchar(100);column:stripe_customer_id;index" json:"-"`
	CancelAtPeriodEnd    bool               `gorm:"not null;default:false;column:cancel_at_period_end" json:"cancelAtPeriodEnd"`
}

// PaymentStatus is the state of a recorded payment
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusTrial     PaymentStatus = "trial"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentRecord is the initial payment of a subscription, unique per
// (subscription_id, user_id).
type PaymentRecord struct {
	BaseModel
	SubscriptionID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payment_records_subscription_user;column:subscription_id" json:"subscriptionId"`
	UserID                uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payment_records_subscription_user;column:user_id" json:"userId"`
	StripePaymentIntentID string          `gorm:"type:varchar(100);column:stripe_payment_intent_id" json:"-"`
	StripeInvoiceID       string          `gorm:"type:varchar(100);column:stripe_invoice_id" json:"-"`
	StripeSessionID       string          `gorm:"type:varchar(200);column:stripe_session_id" json:"-"`
	Amount                decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency              string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status                PaymentStatus   `gorm:"type:varchar(20);not null" json:"status"`
	PaidAt                *time.Time      `gorm:"column:paid_at" json:"paidAt,omitempty"`
}

// AppSetting is a keyed JSON configuration value (e.g. the pricing catalog)
type AppSetting struct {
	Key       string    `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value     string    `gorm:"type:jsonb;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// EmailTemplate is a stored notification template. UserID nil means a
// system template.
type EmailTemplate struct {
	BaseModel
	UserID       *uuid.UUID       `gorm:"type:uuid;column:user_id;index" json:"userId,omitempty"`
	TemplateType NotificationType `gorm:"type:varchar(50);not null;column:template_type;index" json:"templateType"`
	Language     string           `gorm:"type:varchar(5);not null" json:"language"`
	Subject      string           `gorm:"type:varchar(300);not null" json:"subject"`
	HTMLContent  string           `gorm:"type:text;not null;column:html_content" json:"htmlContent"`
	TextContent  string           `gorm:"type:text;column:text_content" json:"textContent"`
	IsDefault    bool             `gorm:"not null;default:false;column:is_default" json:"isDefault"`
	IsActive     bool             `gorm:"not null;column:is_active" json:"isActive"`
}

// NotificationLog records one notification attempt (table subscription_notifications)
type NotificationLog struct {
	BaseModel
	UserID           *uuid.UUID       `gorm:"type:uuid;column:user_id;index" json:"userId,omitempty"`
	NotificationType NotificationType `gorm:"type:varchar(50);not null;column:notification_type" json:"notificationType"`
	Email            string           `gorm:"type:varchar(255);not null" json:"email"`
	Language         string           `gorm:"type:varchar(5)" json:"language"`
	Success          bool             `gorm:"not null" json:"success"`
	ErrorMessage     string           `gorm:"type:text;column:error_message" json:"errorMessage,omitempty"`
	SentAt           time.Time        `gorm:"not null;column:sent_at" json:"sentAt"`
}

// TableName keeps the historical table name
func (NotificationLog) TableName() string {
	return "subscription_notifications"
}

// EmailVerificationOTP holds the hashed one-time code for an email address
type EmailVerificationOTP struct {
	BaseModel
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	CodeHash  string    `gorm:"type:varchar(100);not null;column:code_hash" json:"-"`
	ExpiresAt time.Time `gorm:"not null;column:expires_at;index" json:"expiresAt"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
}

// TableName sets the table name
func (EmailVerificationOTP) TableName() string {
	return "email_verification_otps"
}

// Client is a customer of the artisan
type Client struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	Name   string    `gorm:"type:varchar(200);not null" json:"name"`
	Email  string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone  string    `gorm:"type:varchar(30)" json:"phone,omitempty"`
}

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusUnpaid    InvoiceStatus = "unpaid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsOpen reports whether the invoice still awaits payment
func (s InvoiceStatus) IsOpen() bool {
	return s != InvoiceStatusPaid && s != InvoiceStatusCancelled && s != InvoiceStatusDraft
}

// Invoice is an issued invoice
type Invoice struct {
	BaseModel
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	ClientID      *uuid.UUID      `gorm:"type:uuid;column:client_id" json:"clientId,omitempty"`
	Client        *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	InvoiceNumber string          `gorm:"type:varchar(50);not null;column:invoice_number" json:"invoiceNumber"`
	Title         string          `gorm:"type:varchar(300)" json:"title"`
	Status        InvoiceStatus   `gorm:"type:varchar(20);not null" json:"status"`
	FinalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null;column:final_amount" json:"finalAmount"`
	DueDate       *time.Time      `gorm:"type:date;column:due_date" json:"dueDate,omitempty"`
}

// QuoteStatus is the lifecycle state of a quote
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusViewed   QuoteStatus = "viewed"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// IsPending reports whether the quote still awaits a client decision
func (s QuoteStatus) IsPending() bool {
	return s == QuoteStatusSent || s == QuoteStatusViewed
}

// Quote is a price quote sent to a client
type Quote struct {
	BaseModel
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	ClientID    *uuid.UUID      `gorm:"type:uuid;column:client_id" json:"clientId,omitempty"`
	Client      *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	QuoteNumber string          `gorm:"type:varchar(50);not null;column:quote_number" json:"quoteNumber"`
	Title       string          `gorm:"type:varchar(300)" json:"title"`
	Status      QuoteStatus     `gorm:"type:varchar(20);not null" json:"status"`
	FinalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;column:final_amount" json:"finalAmount"`
	ValidUntil  *time.Time      `gorm:"type:date;column:valid_until" json:"validUntil,omitempty"`
}

// FollowUpMeta is the free-form JSON attached to a follow-up. Only the keys
// read by the classifier are typed.
type FollowUpMeta struct {
	FollowUpType FollowUpType     `json:"follow_up_type,omitempty"`
	Priority     FollowUpPriority `json:"priority,omitempty"`
}

// InvoiceFollowUp is a scheduled reminder for an unpaid invoice
type InvoiceFollowUp struct {
	BaseModel
	UserID      uuid.UUID    `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	InvoiceID   uuid.UUID    `gorm:"type:uuid;not null;index;column:invoice_id" json:"invoiceId"`
	Invoice     *Invoice     `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	Status      string       `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Stage       int          `gorm:"not null;default:1" json:"stage"`
	ScheduledAt *time.Time   `gorm:"column:scheduled_at" json:"scheduledAt,omitempty"`
	Meta        FollowUpMeta `gorm:"type:jsonb;serializer:json" json:"meta"`
}

// QuoteFollowUp is a scheduled reminder for a pending quote
type QuoteFollowUp struct {
	BaseModel
	UserID      uuid.UUID    `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	QuoteID     uuid.UUID    `gorm:"type:uuid;not null;index;column:quote_id" json:"quoteId"`
	Quote       *Quote       `gorm:"foreignKey:QuoteID" json:"quote,omitempty"`
	Status      string       `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Stage       int          `gorm:"not null;default:1" json:"stage"`
	ScheduledAt *time.Time   `gorm:"column:scheduled_at" json:"scheduledAt,omitempty"`
	Meta        FollowUpMeta `gorm:"type:jsonb;serializer:json" json:"meta"`
}
