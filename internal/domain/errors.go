package domain

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages maps validator tags to user-facing (French) messages
var ValidationMessages = map[string]string{
	"required": "Ce champ est obligatoire",
	"email":    "Adresse e-mail invalide",
	"max":      "Valeur trop longue",
	"min":      "Valeur trop courte",
	"len":      "Longueur invalide",
	"numeric":  "Doit contenir uniquement des chiffres",
	"oneof":    "Valeur non autorisée",
	"eqfield":  "Les valeurs ne correspondent pas",
	"phone":    "Numéro de téléphone invalide",
	"uuid":     "Identifiant invalide",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Valeur invalide"
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation     = "validation_error"
	ErrorTypeNotFound       = "not_found"
	ErrorTypeBadRequest     = "bad_request"
	ErrorTypeConflict       = "conflict"
	ErrorTypeUnauthorized   = "unauthorized"
	ErrorTypeForbidden      = "forbidden"
	ErrorTypeTooManyRequest = "too_many_requests"
	ErrorTypeUpstream       = "upstream_error"
	ErrorTypeInternal       = "internal_error"
)
