package service

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/email"
	"github.com/shopspring/decimal"
)

// TemplateVars is the closed set of values a stored template may reference
// as {placeholder} tokens.
type TemplateVars struct {
	UserName         string
	UserEmail        string
	FirstName        string
	CompanyName      string
	PlanName         string
	PlanAmount       string
	BillingCycle     string
	OldPlanName      string
	OldPlanAmount    string
	NewPlanName      string
	NewPlanAmount    string
	TrialEndDate     string
	PeriodEndDate    string
	EffectiveDate    string
	VerificationCode string
	ExpiresInMinutes string
	AppURL           string
	SupportEmail     string
}

func (v TemplateVars) values() map[string]string {
	return map[string]string{
		"user_name":          v.UserName,
		"user_email":         v.UserEmail,
		"first_name":         v.FirstName,
		"company_name":       v.CompanyName,
		"plan_name":          v.PlanName,
		"plan_amount":        v.PlanAmount,
		"billing_cycle":      v.BillingCycle,
		"old_plan_name":      v.OldPlanName,
		"old_plan_amount":    v.OldPlanAmount,
		"new_plan_name":      v.NewPlanName,
		"new_plan_amount":    v.NewPlanAmount,
		"trial_end_date":     v.TrialEndDate,
		"period_end_date":    v.PeriodEndDate,
		"effective_date":     v.EffectiveDate,
		"verification_code":  v.VerificationCode,
		"expires_in_minutes": v.ExpiresInMinutes,
		"app_url":            v.AppURL,
		"support_email":      v.SupportEmail,
	}
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

func renderTemplate(tmpl *domain.EmailTemplate, to string, vars TemplateVars) (*email.Message, error) {
	values := vars.values()

	subject, err := substitute(tmpl.Subject, values, false)
	if err != nil {
		return nil, err
	}
	htmlBody, err := substitute(tmpl.HTMLContent, values, true)
	if err != nil {
		return nil, err
	}
	textBody, err := substitute(tmpl.TextContent, values, false)
	if err != nil {
		return nil, err
	}

	return &email.Message{
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	}, nil
}

func substitute(text string, values map[string]string, escape bool) (string, error) {
	var unknown []string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := values[name]
		if !ok {
			unknown = append(unknown, name)
			return token
		}
		if escape {
			return html.EscapeString(value)
		}
		return value
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplateVariable, strings.Join(unknown, ", "))
	}
	return out, nil
}

func cycleLabel(cycle domain.BillingCycle, lang string) string {
	labels := map[string][2]string{
		domain.LanguageFrench:  {"mensuel", "annuel"},
		domain.LanguageEnglish: {"monthly", "yearly"},
		domain.LanguageDutch:   {"maandelijks", "jaarlijks"},
	}
	l, ok := labels[lang]
	if !ok {
		l = labels[domain.DefaultLanguage]
	}
	switch cycle {
	case domain.BillingCycleMonthly:
		return l[0]
	case domain.BillingCycleYearly:
		return l[1]
	}
	return string(cycle)
}

func formatDateFor(t time.Time, lang string) string {
	if lang == domain.LanguageEnglish {
		return t.Format("January 2, 2006")
	}
	return t.Format("02/01/2006")
}

// formatAmount renders 69.99 EUR as "69,99 €" (fr, nl) or "€69.99" (en)
func formatAmount(amount decimal.Decimal, currency, lang string) string {
	symbol := currency
	if strings.EqualFold(currency, "EUR") || currency == "" {
		symbol = "€"
	}
	fixed := amount.StringFixed(2)
	if lang == domain.LanguageEnglish {
		return symbol + fixed
	}
	return strings.Replace(fixed, ".", ",", 1) + " " + symbol
}

type builtinContent struct {
	subject string
	html    string
	text    string
}

// builtinTemplates covers the two emails that must go out even on an empty
// template table.
var builtinTemplates = map[domain.NotificationType]map[string]builtinContent{
	domain.NotificationEmailVerification: {
		domain.LanguageFrench: {
			subject: "Votre code de vérification Haliqo",
			html:    "<p>Bonjour,</p><p>Votre code de vérification est : <strong>{verification_code}</strong></p><p>Ce code expire dans {expires_in_minutes} minutes.</p>",
			text:    "Bonjour,\n\nVotre code de vérification est : {verification_code}\nCe code expire dans {expires_in_minutes} minutes.",
		},
		domain.LanguageEnglish: {
			subject: "Your Haliqo verification code",
			html:    "<p>Hello,</p><p>Your verification code is: <strong>{verification_code}</strong></p><p>This code expires in {expires_in_minutes} minutes.</p>",
			text:    "Hello,\n\nYour verification code is: {verification_code}\nThis code expires in {expires_in_minutes} minutes.",
		},
		domain.LanguageDutch: {
			subject: "Uw Haliqo-verificatiecode",
			html:    "<p>Hallo,</p><p>Uw verificatiecode is: <strong>{verification_code}</strong></p><p>Deze code verloopt over {expires_in_minutes} minuten.</p>",
			text:    "Hallo,\n\nUw verificatiecode is: {verification_code}\nDeze code verloopt over {expires_in_minutes} minuten.",
		},
	},
	domain.NotificationWelcomeRegistration: {
		domain.LanguageFrench: {
			subject: "Bienvenue sur Haliqo, {user_name} !",
			html:    "<p>Bonjour {user_name},</p><p>Votre compte Haliqo est prêt. Vous pouvez vous connecter dès maintenant sur <a href=\"{app_url}\">{app_url}</a>.</p><p>Une question ? Écrivez-nous à {support_email}.</p>",
			text:    "Bonjour {user_name},\n\nVotre compte Haliqo est prêt. Connectez-vous sur {app_url}.\n\nUne question ? Écrivez-nous à {support_email}.",
		},
		domain.LanguageEnglish: {
			subject: "Welcome to Haliqo, {user_name}!",
			html:    "<p>Hello {user_name},</p><p>Your Haliqo account is ready. Sign in at <a href=\"{app_url}\">{app_url}</a>.</p><p>Questions? Write to {support_email}.</p>",
			text:    "Hello {user_name},\n\nYour Haliqo account is ready. Sign in at {app_url}.\n\nQuestions? Write to {support_email}.",
		},
		domain.LanguageDutch: {
			subject: "Welkom bij Haliqo, {user_name}!",
			html:    "<p>Hallo {user_name},</p><p>Uw Haliqo-account is klaar. Meld u aan op <a href=\"{app_url}\">{app_url}</a>.</p><p>Vragen? Schrijf naar {support_email}.</p>",
			text:    "Hallo {user_name},\n\nUw Haliqo-account is klaar. Meld u aan op {app_url}.\n\nVragen? Schrijf naar {support_email}.",
		},
	},
}

func builtinTemplate(templateType domain.NotificationType, lang string) (*domain.EmailTemplate, bool) {
	byLang, ok := builtinTemplates[templateType]
	if !ok {
		return nil, false
	}
	content, ok := byLang[lang]
	if !ok {
		content = byLang[domain.DefaultLanguage]
		lang = domain.DefaultLanguage
	}
	return &domain.EmailTemplate{
		TemplateType: templateType,
		Language:     lang,
		Subject:      content.subject,
		HTMLContent:  content.html,
		TextContent:  content.text,
		IsDefault:    true,
		IsActive:     true,
	}, true
}
