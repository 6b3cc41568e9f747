package filer

import (
	"errors"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/ledger"
	"github.com/xraph/filer/payload"
	"github.com/xraph/filer/store"
	"github.com/xraph/filer/submission"
)

// Sentinel errors returned by filer operations. Errors owned by subpackages
// are re-exported so callers can match everything against filer.ErrX.
var (
	// ErrNoStore is returned when a Filer is created without a store.
	ErrNoStore = errors.New("filer: store is required")

	// ErrInvalidConfig is returned when the engine configuration is unusable.
	ErrInvalidConfig = errors.New("filer: invalid config")

	// ErrSimulatedInProduction is returned when a simulated backend is
	// configured for the production environment.
	ErrSimulatedInProduction = errors.New("filer: simulated backend is not allowed in production")

	// ErrAlreadySubmitted is returned when submitting an event that already
	// left the pending state.
	ErrAlreadySubmitted = errors.New("filer: event already submitted")

	// Payload building.
	ErrUnsupportedEventType    = catalog.ErrUnsupportedEventType
	ErrPayloadValidationFailed = payload.ErrPayloadValidationFailed

	// Submission preconditions.
	ErrCredentialsNotConfigured = credential.ErrCredentialsNotConfigured
	ErrCredentialExpired        = credential.ErrCredentialExpired
	ErrCredentialNotFound       = credential.ErrCredentialNotFound
	ErrInvalidCredential        = credential.ErrInvalidCredential

	// Remote calls.
	ErrTransport       = submission.ErrTransport
	ErrRemoteRejected  = submission.ErrRemoteRejected
	ErrUnknownProtocol = submission.ErrUnknownProtocol
	ErrInvalidMode     = submission.ErrInvalidMode

	// Ledger and persistence.
	ErrEventNotFound   = ledger.ErrEventNotFound
	ErrInvalidEvent    = ledger.ErrInvalidEvent
	ErrStoreClosed     = store.ErrStoreClosed
	ErrMigrationFailed = store.ErrMigrationFailed
)
