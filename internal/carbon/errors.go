package carbon

import "codeberg.org/mutker/gpucarbon/internal/errors"

const (
	// Client Errors
	ErrEmptyZone         = errors.ErrorCode("carbon_empty_zone")
	ErrRequestFailed     = errors.ErrorCode("carbon_request_failed")
	ErrUnexpectedStatus  = errors.ErrorCode("carbon_unexpected_status")
	ErrMalformedResponse = errors.ErrorCode("carbon_malformed_response")
	ErrInvalidIntensity  = errors.ErrorCode("carbon_invalid_intensity")
)
