package credential

import "context"

// Store defines the persistence contract for credentials.
type Store interface {
	// PutCredential stores c, replacing any existing record of the same kind.
	PutCredential(ctx context.Context, c *Credential) error

	// GetCredential returns the record for a kind, or ErrCredentialNotFound.
	GetCredential(ctx context.Context, kind Kind) (*Credential, error)

	// ListCredentials returns every stored credential.
	ListCredentials(ctx context.Context) ([]*Credential, error)
}
