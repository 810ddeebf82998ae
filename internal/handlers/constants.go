package handlers

const (
	ErrInvalidFormData     = "Invalid form data"
	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnknownDeck         = "Unknown deck"
	ErrUnknownAction       = "Unknown action"
	ErrForbidden           = "Invalid or missing CSRF token"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
