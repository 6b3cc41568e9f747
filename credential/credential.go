// Package credential holds the certificate and power-of-attorney records
// that must be present and valid before any submission.
package credential

import (
	"errors"
	"time"

	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/entity"
)

var (
	// ErrCredentialsNotConfigured is returned when a required credential is
	// missing or unusable at submission time.
	ErrCredentialsNotConfigured = errors.New("filer: credentials not configured")

	// ErrCredentialExpired is returned when a credential is outside its
	// validity window. It is always joined with ErrCredentialsNotConfigured.
	ErrCredentialExpired = errors.New("filer: credential expired")

	// ErrCredentialNotFound is returned by stores when a kind has no record.
	ErrCredentialNotFound = errors.New("filer: credential not found")

	// ErrInvalidCredential is returned when a credential cannot be configured.
	ErrInvalidCredential = errors.New("filer: invalid credential")
)

// Kind identifies which authorization artifact a credential is.
type Kind string

// Credential kinds. Both are required for submission.
const (
	KindCertificate     Kind = "certificate"
	KindPowerOfAttorney Kind = "power_of_attorney"
)

// Kinds lists every credential kind.
var Kinds = []Kind{KindCertificate, KindPowerOfAttorney}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCertificate || k == KindPowerOfAttorney
}

// Credential is a time-bounded authorization artifact.
type Credential struct {
	entity.Entity

	// ID is the unique TypeID for this credential.
	ID id.ID `json:"id"`

	// Kind is the artifact type. A store holds at most one record per kind.
	Kind Kind `json:"kind"`

	// Subject is the holder, e.g. the certificate subject or the grantee.
	Subject string `json:"subject"`

	// Issuer is the certificate authority or the granting party.
	Issuer string `json:"issuer"`

	// SerialNumber identifies the artifact at its issuer.
	SerialNumber string `json:"serial_number,omitempty"`

	// ValidFrom and ValidTo bound the validity window, inclusive.
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`

	// SigningKey is the opaque key material used to authenticate requests
	// made with this credential. Never serialized.
	SigningKey string `json:"-"`
}

// IsValidAt reports whether t falls within [ValidFrom, ValidTo].
func (c *Credential) IsValidAt(t time.Time) bool {
	if c == nil {
		return false
	}
	return !t.Before(c.ValidFrom) && !t.After(c.ValidTo)
}

// Set is the pair of credentials a submission needs. Either may be nil.
type Set struct {
	Certificate     *Credential `json:"certificate,omitempty"`
	PowerOfAttorney *Credential `json:"power_of_attorney,omitempty"`
}

// Get returns the credential of kind k.
func (s Set) Get(k Kind) *Credential {
	switch k {
	case KindCertificate:
		return s.Certificate
	case KindPowerOfAttorney:
		return s.PowerOfAttorney
	default:
		return nil
	}
}
