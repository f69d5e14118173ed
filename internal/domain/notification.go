package domain

// NotificationType identifies a transactional email
type NotificationType string

const (
	NotificationTrialStarted            NotificationType = "trial_started"
	NotificationTrialEnding             NotificationType = "trial_ending"
	NotificationSubscriptionActivated   NotificationType = "subscription_activated"
	NotificationSubscriptionUpgraded    NotificationType = "subscription_upgraded"
	NotificationSubscriptionDowngraded  NotificationType = "subscription_downgraded"
	NotificationSubscriptionCancelled   NotificationType = "subscription_cancelled"
	NotificationSubscriptionReactivated NotificationType = "subscription_reactivated"
	NotificationWelcomeRegistration     NotificationType = "welcome_registration"
	NotificationEmailVerification       NotificationType = "email_verification"
)

// IsValid reports whether t is a known notification type
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTrialStarted, NotificationTrialEnding, NotificationSubscriptionActivated,
		NotificationSubscriptionUpgraded, NotificationSubscriptionDowngraded,
		NotificationSubscriptionCancelled, NotificationSubscriptionReactivated,
		NotificationWelcomeRegistration, NotificationEmailVerification:
		return true
	}
	return false
}

// Supported template languages. French is the default.
const (
	LanguageFrench  = "fr"
	LanguageEnglish = "en"
	LanguageDutch   = "nl"
	DefaultLanguage = LanguageFrench
)

// SupportedLanguages lists template languages in preference order
var SupportedLanguages = []string{LanguageFrench, LanguageEnglish, LanguageDutch}
