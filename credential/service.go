package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/filer/id"
)

// Service evaluates the submission precondition over a Store. Validity is
// computed from the clock on every call and never cached.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewService returns a Service reading from store. A nil clock uses
// time.Now and a nil logger uses slog.Default.
func NewService(store Store, clock func() time.Time, logger *slog.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, now: clock, logger: logger}
}

// Configure stores or overwrites the credential of c.Kind.
func (s *Service) Configure(ctx context.Context, c *Credential) error {
	if c == nil {
		return fmt.Errorf("%w: nil credential", ErrInvalidCredential)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCredential, c.Kind)
	}
	if c.ValidFrom.IsZero() || c.ValidTo.IsZero() {
		return fmt.Errorf("%w: validity window is required", ErrInvalidCredential)
	}
	if c.ValidTo.Before(c.ValidFrom) {
		return fmt.Errorf("%w: valid_to precedes valid_from", ErrInvalidCredential)
	}
	if c.ID.IsNil() {
		c.ID = id.NewCredentialID()
	}
	c.Touch(s.now().UTC())

	if err := s.store.PutCredential(ctx, c); err != nil {
		return fmt.Errorf("configure %s: %w", c.Kind, err)
	}

	s.logger.InfoContext(ctx, "credential configured",
		"kind", c.Kind,
		"credential_id", c.ID.String(),
		"valid_to", c.ValidTo,
	)
	return nil
}

// Current returns the stored credentials. Missing kinds are nil.
func (s *Service) Current(ctx context.Context) (Set, error) {
	var set Set
	for _, k := range Kinds {
		c, err := s.store.GetCredential(ctx, k)
		if errors.Is(err, ErrCredentialNotFound) {
			continue
		}
		if err != nil {
			return Set{}, fmt.Errorf("load %s: %w", k, err)
		}
		switch k {
		case KindCertificate:
			set.Certificate = c
		case KindPowerOfAttorney:
			set.PowerOfAttorney = c
		}
	}
	return set, nil
}

// Check returns the current set if both kinds are present and valid now.
// A missing kind fails with ErrCredentialsNotConfigured; an expired or not
// yet valid one also matches ErrCredentialExpired.
func (s *Service) Check(ctx context.Context) (Set, error) {
	set, err := s.Current(ctx)
	if err != nil {
		return Set{}, err
	}

	now := s.now()
	for _, k := range Kinds {
		c := set.Get(k)
		if c == nil {
			return Set{}, fmt.Errorf("%w: missing %s", ErrCredentialsNotConfigured, k)
		}
		if !c.IsValidAt(now) {
			return Set{}, fmt.Errorf("%w: %w: %s valid %s to %s",
				ErrCredentialsNotConfigured, ErrCredentialExpired, k,
				c.ValidFrom.Format(time.RFC3339), c.ValidTo.Format(time.RFC3339))
		}
	}
	return set, nil
}

// IsSubmissionAllowed reports whether Check would succeed right now.
func (s *Service) IsSubmissionAllowed(ctx context.Context) bool {
	_, err := s.Check(ctx)
	return err == nil
}
