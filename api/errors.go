package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/filer"
)

// statusFor maps filer sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, filer.ErrEventNotFound),
		errors.Is(err, filer.ErrUnknownProtocol),
		errors.Is(err, filer.ErrCredentialNotFound):
		return http.StatusNotFound
	case errors.Is(err, filer.ErrUnsupportedEventType),
		errors.Is(err, filer.ErrPayloadValidationFailed),
		errors.Is(err, filer.ErrInvalidCredential),
		errors.Is(err, filer.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, filer.ErrCredentialsNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, filer.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, filer.ErrRemoteRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, filer.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var errPEMKind = fmt.Errorf("%w: pem is only accepted for certificates", filer.ErrInvalidCredential)
