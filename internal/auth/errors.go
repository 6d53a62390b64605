package auth

import "net/http"

// Error is a terminal pipeline failure carrying its HTTP status.
type Error struct {
	Status  int
	Message string
	Detail  string // provider detail, sent to the client for 401s
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func unauthorized(detail string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: "unauthorized access", Detail: detail}
}

func forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}
