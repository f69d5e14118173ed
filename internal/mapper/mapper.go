package mapper

import (
	"time"

	"github.com/haliqo/haliqo-api/internal/domain"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	professions := user.Professions
	if professions == nil {
		professions = []string{}
	}
	return domain.UserDTO{
		ID:                    user.ID,
		Email:                 user.Email,
		FirstName:             user.FirstName,
		LastName:              user.LastName,
		Phone:                 user.Phone,
		Country:               user.Country,
		Professions:           professions,
		BusinessSize:          user.BusinessSize,
		SelectedPlan:          user.SelectedPlan,
		BillingCycle:          user.BillingCycle,
		SubscriptionStatus:    user.SubscriptionStatus,
		TrialEnd:              formatTime(user.TrialEnd),
		Language:              user.Language,
		RegistrationCompleted: user.RegistrationCompleted,
	}
}

// ToAccountDTO combines a user with its profile. A user without an active
// profile (registration not completed, or deactivated) has no module access.
func ToAccountDTO(user *domain.User, profile *domain.UserProfile) domain.AccountDTO {
	dto := domain.AccountDTO{
		User:        ToUserDTO(user),
		Permissions: domain.Permissions{},
	}
	if profile == nil {
		return dto
	}
	dto.Role = profile.Role
	dto.IsActive = profile.IsActive
	for _, m := range domain.AllModules {
		if profile.IsActive {
			dto.Permissions[m] = profile.Permissions.Level(m)
		} else {
			dto.Permissions[m] = domain.PermissionNone
		}
	}
	return dto
}

func ToNotificationLogDTO(entry *domain.NotificationLog) domain.NotificationLogDTO {
	return domain.NotificationLogDTO{
		ID:               entry.ID,
		NotificationType: entry.NotificationType,
		Email:            entry.Email,
		Language:         entry.Language,
		Success:          entry.Success,
		ErrorMessage:     entry.ErrorMessage,
		SentAt:           formatTime(&entry.SentAt),
	}
}

// ToSubscriptionDTO converts Subscription to SubscriptionDTO
func ToSubscriptionDTO(sub *domain.Subscription) domain.SubscriptionDTO {
	return domain.SubscriptionDTO{
		ID:                 sub.ID,
		PlanType:           sub.PlanType,
		PlanName:           sub.PlanName,
		Interval:           sub.Interval,
		Amount:             sub.Amount,
		Currency:           sub.Currency,
		Status:             sub.Status,
		CurrentPeriodStart: formatTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   formatTime(sub.CurrentPeriodEnd),
		TrialEnd:           formatTime(sub.TrialEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
}

// ToCompanyProfileDTO converts CompanyProfile to CompanyProfileDTO
func ToCompanyProfileDTO(profile *domain.CompanyProfile) domain.CompanyProfileDTO {
	return domain.CompanyProfileDTO{
		ID:          profile.ID,
		CompanyName: profile.CompanyName,
		VATNumber:   profile.VATNumber,
		Address:     profile.Address,
		PostalCode:  profile.PostalCode,
		City:        profile.City,
		State:       profile.State,
		Country:     profile.Country,
		Phone:       profile.Phone,
		Email:       profile.Email,
		Website:     profile.Website,
		LogoPath:    profile.LogoPath,
		IsDefault:   profile.IsDefault,
		UpdatedAt:   profile.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToInvoiceFollowUpDTO converts an invoice follow-up with its classification
func ToInvoiceFollowUpDTO(f *domain.InvoiceFollowUp, followUpType domain.FollowUpType, priority domain.FollowUpPriority) domain.FollowUpDTO {
	dto := domain.FollowUpDTO{
		ID:           f.ID,
		DocumentID:   f.InvoiceID,
		Stage:        f.Stage,
		Status:       f.Status,
		FollowUpType: followUpType,
		Priority:     priority,
		ScheduledAt:  formatTime(f.ScheduledAt),
	}
	if inv := f.Invoice; inv != nil {
		dto.Number = inv.InvoiceNumber
		dto.Title = inv.Title
		dto.Amount = inv.FinalAmount
		dto.DueDate = formatDate(inv.DueDate)
		if inv.Client != nil {
			dto.ClientName = inv.Client.Name
			dto.ClientEmail = inv.Client.Email
		}
	}
	return dto
}

// ToQuoteFollowUpDTO converts a quote follow-up with its classification
func ToQuoteFollowUpDTO(f *domain.QuoteFollowUp, followUpType domain.FollowUpType, priority domain.FollowUpPriority) domain.FollowUpDTO {
	dto := domain.FollowUpDTO{
		ID:           f.ID,
		DocumentID:   f.QuoteID,
		Stage:        f.Stage,
		Status:       f.Status,
		FollowUpType: followUpType,
		Priority:     priority,
		ScheduledAt:  formatTime(f.ScheduledAt),
	}
	if q := f.Quote; q != nil {
		dto.Number = q.QuoteNumber
		dto.Title = q.Title
		dto.Amount = q.FinalAmount
		dto.DueDate = formatDate(q.ValidUntil)
		if q.Client != nil {
			dto.ClientName = q.Client.Name
			dto.ClientEmail = q.Client.Email
		}
	}
	return dto
}

// ToRegistrationForm rebuilds a resumable form from saved rows. Secrets are never prefilled.
func ToRegistrationForm(user *domain.User, company *domain.CompanyProfile) *domain.RegistrationForm {
	form := &domain.RegistrationForm{
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        user.Email,
		Phone:        user.Phone,
		VATNumber:    user.VATNumber,
		Country:      user.Country,
		Professions:  user.Professions,
		BusinessSize: user.BusinessSize,
		SelectedPlan: user.SelectedPlan,
		BillingCycle: user.BillingCycle,
		Language:     user.Language,
	}
	if company != nil {
		form.CompanyName = company.CompanyName
		form.Address = company.Address
		form.PostalCode = company.PostalCode
		form.City = company.City
		form.State = company.State
		if company.Country != "" {
			form.Country = company.Country
		}
		if company.VATNumber != "" {
			form.VATNumber = company.VATNumber
		}
	}
	return form
}
