package errors

import "errors"

// Domain errors
var (
	// Input errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrMissingURL    = errors.New("url is required")
	ErrMissingDomain = errors.New("domain is required")
	ErrInvalidURL    = errors.New("url must be an absolute http or https URL")
	ErrInvalidDomain = errors.New("invalid domain name")

	// Lookup errors
	ErrUpstream        = errors.New("upstream lookup failed")
	ErrTimeout         = errors.New("lookup timed out")
	ErrNotFound        = errors.New("no data found")
	ErrTLSUnavailable  = errors.New("tls handshake failed")
	ErrResponseTooLong = errors.New("response exceeds size limit")
)
