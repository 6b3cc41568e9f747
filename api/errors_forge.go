package api

import (
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/filer"
)

// mapError converts filer sentinel errors to Forge HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, filer.ErrEventNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, filer.ErrUnknownProtocol):
		return forge.NotFound(err.Error())
	case errors.Is(err, filer.ErrCredentialNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, filer.ErrUnsupportedEventType):
		return forge.BadRequest(err.Error())
	case errors.Is(err, filer.ErrPayloadValidationFailed):
		return forge.BadRequest(err.Error())
	case errors.Is(err, filer.ErrInvalidCredential):
		return forge.BadRequest(err.Error())
	case errors.Is(err, filer.ErrCredentialsNotConfigured):
		return forge.NewHTTPError(http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, filer.ErrAlreadySubmitted):
		return forge.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, filer.ErrRemoteRejected):
		return forge.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, filer.ErrTransport):
		return forge.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, filer.ErrStoreClosed):
		return forge.InternalError(err)
	default:
		return forge.InternalError(err)
	}
}
