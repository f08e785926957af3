package handler

// Machine-readable error codes returned alongside human messages. Frontends
// branch on these, never on the message text.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeEmailExists         = "EMAIL_EXISTS"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeAIUnavailable       = "AI_UNAVAILABLE"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)
