package models

import "encoding/json"

// Facility endpoint error messages. These endpoints answer with a bare
// {"error": ...} body rather than a problem document.
const (
	ErrMissingCoordinates = "Missing latitude or longitude"
	ErrInvalidCoordinates = "Invalid latitude or longitude"
	ErrMissingAddress     = "Missing address"
	ErrAddressNotFound    = "Address not found"
	ErrSearchUnavailable  = "Address search is unavailable"
)

// ErrorMessage is the error body of the facility endpoints.
type ErrorMessage struct {
	Error string `json:"error"`
}

// MarshalErrorMessage renders msg as an ErrorMessage body.
func MarshalErrorMessage(msg string) []byte {
	b, _ := json.Marshal(ErrorMessage{Error: msg}) //nolint:errchkjson // plain string struct
	return b
}
