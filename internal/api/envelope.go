package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is bumped only on breaking envelope changes. Clients
// check the "v" field before parsing the rest.
const envelopeVersion = 1

// Envelope is the wire shape of every API response. Success responses
// carry "data"; error responses carry "error" plus optional structured
// code/message/details.
type Envelope struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps every response body in the standard envelope.
// Registered as a huma transformer on the API config.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return &Envelope{
			V:       envelopeVersion,
			Success: false,
			Error:   apiErr.Message,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil
	}

	code, err := strconv.Atoi(status)
	if err == nil && code >= 400 {
		return &Envelope{
			V:       envelopeVersion,
			Success: false,
			Error:   status,
		}, nil
	}

	return &Envelope{
		V:       envelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}
