package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/haliqo/haliqo-api/internal/domain"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

// fieldMessages override the generic tag message for specific fields
var fieldMessages = map[string]string{
	"password.min":             "Le mot de passe doit contenir au moins 8 caractères",
	"password.max":             "Le mot de passe ne peut pas dépasser 72 caractères",
	"confirmPassword.eqfield":  "Les mots de passe ne correspondent pas",
	"phone.phone":              "Numéro de téléphone invalide (9 à 15 chiffres, + facultatif)",
	"country.iso3166_1_alpha2": "Code pays invalide (ISO 3166-1, ex. BE ou FR)",
	"professions.required":     "Sélectionnez au moins un métier",
	"professions.min":          "Sélectionnez au moins un métier",
	"acceptTerms.required":     "Vous devez accepter les conditions générales",
	"billingCycle.oneof":       "Choisissez une facturation mensuelle ou annuelle",
}

// newFormValidator returns a validator reporting JSON field names and
// knowing the phone rule.
func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// validateRegistrationStep checks the fields of one step and returns a
// field-keyed message map (empty when valid).
func validateRegistrationStep(v *validator.Validate, step int, form *domain.RegistrationForm) map[string]string {
	result := map[string]string{}
	fields, ok := domain.RegistrationSteps[step]
	if !ok {
		result["step"] = "Étape inconnue"
		return result
	}

	err := v.StructPartial(form, fields...)
	if err == nil {
		return result
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		result["form"] = "Formulaire invalide"
		return result
	}
	for _, fe := range validationErrors {
		field := fe.Field()
		if idx := strings.Index(field, "["); idx > 0 {
			field = field[:idx]
		}
		if _, exists := result[field]; exists {
			continue
		}
		if msg, ok := fieldMessages[field+"."+fe.Tag()]; ok {
			result[field] = msg
			continue
		}
		result[field] = domain.GetValidationMessage(fe.Tag())
	}
	return result
}
