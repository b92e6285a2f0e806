// File: authkit.repository.mongo.imp.go

package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoUsersCollectionName         = "users"
	mongoRefreshTokensCollectionName = "refresh_tokens"
)

// MongoUserStore is a MongoDB-based implementation of UserStore
//
// Email uniqueness is enforced with a unique index on a lowercased shadow
// field so lookups stay case-insensitive without a collation dependency.
type MongoUserStore struct {
	collection *mongo.Collection
}

// mongoUserDocument wraps User with the lowercased email used by the
// unique index.
type mongoUserDocument struct {
	User       `bson:",inline"`
	EmailLower string `bson:"email_lower"`
}

// NewMongoUserStore creates a new MongoDB-based user store
func NewMongoUserStore(db *mongo.Database) (*MongoUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Client().Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}

	collection := db.Collection(mongoUsersCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_lower", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}

	return &MongoUserStore{collection: collection}, nil
}

// FindByEmail looks up a user by case-insensitive email
func (r *MongoUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	var doc mongoUserDocument
	err := r.collection.FindOne(ctx, bson.M{"email_lower": strings.ToLower(email)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb error: %w", err)
	}

	return &doc.User, nil
}

// FindByID looks up a user by id
func (r *MongoUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	var doc mongoUserDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb error: %w", err)
	}

	return &doc.User, nil
}

// ExistsByEmail reports whether an account with the address exists
func (r *MongoUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, fmt.Errorf("email cannot be empty")
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"email_lower": strings.ToLower(email)})
	if err != nil {
		return false, fmt.Errorf("mongodb error: %w", err)
	}

	return count > 0, nil
}

// Save inserts or updates a user, enforcing email uniqueness
func (r *MongoUserStore) Save(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.ID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	doc := mongoUserDocument{
		User:       *user,
		EmailLower: strings.ToLower(user.Email),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, doc, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("mongodb error: %w", err)
	}

	return nil
}

// Delete removes a user record
func (r *MongoUserStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongodb error: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// MongoRefreshTokenStore is a MongoDB-based implementation of RefreshTokenStore
//
// A TTL index on expires_at lets MongoDB delete expired entries on its own.
type MongoRefreshTokenStore struct {
	collection *mongo.Collection
}

// NewMongoRefreshTokenStore creates a new MongoDB-based refresh token ledger
func NewMongoRefreshTokenStore(db *mongo.Database) (*MongoRefreshTokenStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Client().Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}

	collection := db.Collection(mongoRefreshTokensCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create refresh token indexes: %w", err)
	}

	return &MongoRefreshTokenStore{collection: collection}, nil
}

// Save persists a new ledger entry
func (r *MongoRefreshTokenStore) Save(ctx context.Context, record *RefreshTokenRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.TokenHash == "" {
		return fmt.Errorf("token hash cannot be empty")
	}

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("mongodb error: %w", err)
	}

	return nil
}

// FindByToken returns the ledger entry for the token
func (r *MongoRefreshTokenStore) FindByToken(ctx context.Context, token string) (*RefreshTokenRecord, error) {
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	var record RefreshTokenRecord
	err := r.collection.FindOne(ctx, bson.M{"token_hash": hashToken(token)}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb error: %w", err)
	}

	return &record, nil
}

// Revoke marks the entry revoked; revoking twice is a no-op
func (r *MongoRefreshTokenStore) Revoke(ctx context.Context, token string, now time.Time) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	// Only touch entries that are not yet revoked so the original
	// revocation timestamp is preserved.
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"token_hash": hashToken(token), "revoked": false},
		bson.M{"$set": bson.M{"revoked": true, "revoked_at": now}},
	)
	if err != nil {
		return fmt.Errorf("mongodb error: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"token_hash": hashToken(token)})
		if err != nil {
			return fmt.Errorf("mongodb error: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		// Already revoked.
	}

	return nil
}

// RevokeAllForUser revokes every live entry owned by the user
func (r *MongoRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	_, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true, "revoked_at": now}},
	)
	if err != nil {
		return fmt.Errorf("mongodb error: %w", err)
	}

	return nil
}

// IsLive reports whether the entry exists, is not revoked and has not expired
func (r *MongoRefreshTokenStore) IsLive(ctx context.Context, token string, now time.Time) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("token cannot be empty")
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"token_hash": hashToken(token),
		"revoked":    false,
		"expires_at": bson.M{"$gt": now},
	})
	if err != nil {
		return false, fmt.Errorf("mongodb error: %w", err)
	}

	return count > 0, nil
}
