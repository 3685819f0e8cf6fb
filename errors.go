package journeytrace

import (
	"github.com/vincentbai/journeytrace/internal/api"
	"github.com/vincentbai/journeytrace/internal/fetch"
	"github.com/vincentbai/journeytrace/internal/journey"
	"github.com/vincentbai/journeytrace/internal/transaction"
)

// Errors returned by Client. Match them with errors.Is.
var (
	ErrNotConfigured     = transaction.ErrNotConfigured
	ErrMissingCredential = api.ErrMissingCredential
	ErrBodyShaping       = api.ErrBodyShaping
	ErrClientRejected    = fetch.ErrClientRejected
	ErrServerOrTransport = fetch.ErrServerOrTransport
	ErrNoResponseBody    = fetch.ErrNoResponseBody
	ErrResponseTooLarge  = fetch.ErrResponseTooLarge
	ErrMissingField      = journey.ErrMissingField
)

type (
	// ClientRejectedError carries the body of a 4xx response verbatim.
	ClientRejectedError = fetch.ClientRejectedError
	ServerError         = fetch.ServerError
	TransportError      = fetch.TransportError
	ShapeError          = api.ShapeError
	MissingFieldError   = journey.MissingFieldError
)
