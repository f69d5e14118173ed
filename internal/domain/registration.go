package domain

import "strings"

// RegistrationForm is the three-step registration state submitted by the
// web client. Validation tags are evaluated per step.
type RegistrationForm struct {
	// Step 1: account
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password,omitempty" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword,omitempty" validate:"required,eqfield=Password"`
	Phone           string `json:"phone" validate:"required,phone"`

	// Step 2: company
	CompanyName  string   `json:"companyName" validate:"required,max=200"`
	VATNumber    string   `json:"vatNumber,omitempty" validate:"omitempty,max=50"`
	Address      string   `json:"address" validate:"required,max=500"`
	PostalCode   string   `json:"postalCode" validate:"required,max=20"`
	City         string   `json:"city" validate:"required,max=100"`
	State        string   `json:"state,omitempty" validate:"omitempty,max=100"`
	Country      string   `json:"country" validate:"required,iso3166_1_alpha2"`
	Professions  []string `json:"professions" validate:"required,min=1,dive,required"`
	BusinessSize string   `json:"businessSize" validate:"required"`

	// Step 3: plan
	SelectedPlan string       `json:"selectedPlan" validate:"required"`
	BillingCycle BillingCycle `json:"billingCycle" validate:"required,oneof=monthly yearly"`
	AcceptTerms  bool         `json:"acceptTerms" validate:"required"`
	Language     string       `json:"language,omitempty" validate:"omitempty,oneof=fr en nl"`
}

// RegistrationSteps lists the struct fields checked at each step
var RegistrationSteps = map[int][]string{
	1: {"FirstName", "LastName", "Email", "Password", "ConfirmPassword", "Phone"},
	2: {"CompanyName", "VATNumber", "Address", "PostalCode", "City", "State", "Country", "Professions", "BusinessSize"},
	3: {"SelectedPlan", "BillingCycle", "AcceptTerms", "Language"},
}

// RegistrationStepCount is the number of steps in the flow
const RegistrationStepCount = 3

// Normalize trims whitespace and lowercases the email
func (f *RegistrationForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = NormalizeEmail(f.Email)
	f.Phone = strings.ReplaceAll(strings.TrimSpace(f.Phone), " ", "")
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.VATNumber = strings.TrimSpace(f.VATNumber)
	f.Address = strings.TrimSpace(f.Address)
	f.PostalCode = strings.TrimSpace(f.PostalCode)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.Country = strings.ToUpper(strings.TrimSpace(f.Country))
	f.SelectedPlan = strings.TrimSpace(f.SelectedPlan)
	if f.Language == "" {
		f.Language = DefaultLanguage
	}
}

// HasCompany reports whether enough company data exists to write a profile
func (f *RegistrationForm) HasCompany() bool {
	return f.CompanyName != ""
}

// NormalizeEmail is the canonical form used for lookups and keys
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
