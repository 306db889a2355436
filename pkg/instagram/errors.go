package instagram

import "fmt"

// ErrorType categorizes raw failures surfaced by the Instagram client.
// These are provider-level categories; how the scout reacts to them is
// decided by the classifier, not here.
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeChallenge   ErrorType = "challenge"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeEmptyResult ErrorType = "empty_result"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a raw Instagram API error with structural information
// (status code plus provider message) preserved for classification.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("instagram %s error (code %d): %s", e.Type, e.Code, e.Message)
}
