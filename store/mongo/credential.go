package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/filer/credential"
)

// PutCredential stores the credential of c.Kind, keeping the original
// creation time on overwrite.
func (s *Store) PutCredential(ctx context.Context, c *credential.Credential) error {
	m := toCredentialModel(c)

	update := bson.M{
		"$set": bson.M{
			"credential_id": m.ID,
			"subject":       m.Subject,
			"issuer":        m.Issuer,
			"serial_number": m.SerialNumber,
			"valid_from":    m.ValidFrom,
			"valid_to":      m.ValidTo,
			"signing_key":   m.SigningKey,
			"updated_at":    m.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": m.CreatedAt},
	}

	_, err := s.mdb.Collection(colCredentials).
		UpdateOne(ctx, bson.M{"_id": m.Kind}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("filer/mongo: put credential: %w", err)
	}

	return nil
}

// GetCredential returns the credential of the given kind.
func (s *Store) GetCredential(ctx context.Context, kind credential.Kind) (*credential.Credential, error) {
	var m credentialModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": string(kind)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, credential.ErrCredentialNotFound
		}

		return nil, fmt.Errorf("filer/mongo: get credential: %w", err)
	}

	return fromCredentialModel(&m)
}

// ListCredentials returns every stored credential.
func (s *Store) ListCredentials(ctx context.Context) ([]*credential.Credential, error) {
	var models []credentialModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("filer/mongo: list credentials: %w", err)
	}

	result := make([]*credential.Credential, 0, len(models))

	for i := range models {
		c, err := fromCredentialModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, c)
	}

	return result, nil
}
