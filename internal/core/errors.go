package core

import "errors"

var (
	// ErrUnauthorized means the access code is malformed or unknown.
	ErrUnauthorized = errors.New("invalid access code")
	// ErrInvalidInput covers request payloads the service refuses to forward.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidEmail is reported for a known access code paired with a malformed email.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrUpstreamUnavailable wraps failures and timeouts of the hosted model.
	ErrUpstreamUnavailable = errors.New("model service unavailable")
	// ErrResponseParse means the model announced a fenced JSON block that does not decode.
	ErrResponseParse = errors.New("malformed structured model response")
)
