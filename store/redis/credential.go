package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/entity"
)

// credentialModel is the JSON representation stored in Redis. Unlike the
// domain type it carries the signing key.
type credentialModel struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serial_number,omitempty"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidTo      time.Time `json:"valid_to"`
	SigningKey   string    `json:"signing_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toCredentialModel(c *credential.Credential) *credentialModel {
	return &credentialModel{
		ID:           c.ID.String(),
		Kind:         string(c.Kind),
		Subject:      c.Subject,
		Issuer:       c.Issuer,
		SerialNumber: c.SerialNumber,
		ValidFrom:    c.ValidFrom,
		ValidTo:      c.ValidTo,
		SigningKey:   c.SigningKey,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func fromCredentialModel(m *credentialModel) (*credential.Credential, error) {
	credID, err := id.ParseCredentialID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse credential ID %q: %w", m.ID, err)
	}
	return &credential.Credential{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           credID,
		Kind:         credential.Kind(m.Kind),
		Subject:      m.Subject,
		Issuer:       m.Issuer,
		SerialNumber: m.SerialNumber,
		ValidFrom:    m.ValidFrom,
		ValidTo:      m.ValidTo,
		SigningKey:   m.SigningKey,
	}, nil
}

// PutCredential stores the credential of c.Kind, keeping the original
// creation time on overwrite.
func (s *Store) PutCredential(ctx context.Context, c *credential.Credential) error {
	m := toCredentialModel(c)
	key := entityKey(prefixCredential, m.Kind)

	var prev credentialModel
	err := s.getEntity(ctx, key, &prev)
	switch {
	case err == nil && !prev.CreatedAt.IsZero():
		m.CreatedAt = prev.CreatedAt
	case err != nil && !isRedisNil(err):
		return fmt.Errorf("filer/redis: put credential: %w", err)
	}

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("filer/redis: put credential: %w", err)
	}
	return nil
}

// GetCredential returns the credential of the given kind.
func (s *Store) GetCredential(ctx context.Context, kind credential.Kind) (*credential.Credential, error) {
	var m credentialModel
	if err := s.getEntity(ctx, entityKey(prefixCredential, string(kind)), &m); err != nil {
		if isRedisNil(err) {
			return nil, credential.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("filer/redis: get credential: %w", err)
	}
	return fromCredentialModel(&m)
}

// ListCredentials returns every stored credential.
func (s *Store) ListCredentials(ctx context.Context) ([]*credential.Credential, error) {
	result := make([]*credential.Credential, 0, len(credential.Kinds))
	for _, k := range credential.Kinds {
		c, err := s.GetCredential(ctx, k)
		if errors.Is(err, credential.ErrCredentialNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}
