package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// TokenStore implements storage.TokenStore using MongoDB.
type TokenStore struct {
	coll *mongo.Collection
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(db *Database) *TokenStore {
	return &TokenStore{coll: db.Collection(CollectionTokens)}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts the record or replaces the existing one for MintAddress.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.TokenRecord) error {
	if t == nil || t.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	warnings := t.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	set := bson.M{
		"network":                  t.Network,
		"program_type":             t.ProgramType,
		"decimals":                 t.Decimals,
		"supply":                   t.Supply,
		"mint_authority_revoked":   t.MintAuthorityRevoked,
		"freeze_authority_revoked": t.FreezeAuthorityRevoked,
		"risk_score":               t.RiskScore,
		"warnings":                 warnings,
		"status":                   t.Status,
		"verified_at":              t.VerifiedAt,
		"updated_at":               t.UpdatedAt,
	}
	// Unknown metadata must not erase what an earlier run found.
	if t.Name != nil {
		set["name"] = *t.Name
	}
	if t.Symbol != nil {
		set["symbol"] = *t.Symbol
	}
	if t.URI != nil {
		set["uri"] = *t.URI
	}

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": t.MintAddress},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error) {
	var t domain.TokenRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": mint}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	t.VerifiedAt = t.VerifiedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

// ListMints returns all tracked mint addresses, ordered by mint ASC.
func (s *TokenStore) ListMints(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mints: %w", err)
	}

	mints := make([]string, 0, len(docs))
	for _, d := range docs {
		mints = append(mints, d.ID)
	}
	return mints, nil
}
