// File: authkit.repository.inmemory.imp.go

package authkit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryUserStore is an in-memory implementation of UserStore
// Suitable for development, testing, or single-instance deployments
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string // lowercase email -> user id
}

// NewMemoryUserStore creates a new in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// FindByEmail looks up a user by case-insensitive email
func (m *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	user := m.byID[id]
	return &user, nil
}

// FindByID looks up a user by id
func (m *MemoryUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// ExistsByEmail reports whether an account with the address exists
func (m *MemoryUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, fmt.Errorf("email cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byEmail[strings.ToLower(email)]
	return ok, nil
}

// Save inserts or updates a user, enforcing email uniqueness
func (m *MemoryUserStore) Save(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.ID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	emailKey := strings.ToLower(user.Email)
	if ownerID, taken := m.byEmail[emailKey]; taken && ownerID != user.ID {
		return ErrDuplicateEmail
	}

	// Drop the old email index entry when the address changed on update.
	if existing, ok := m.byID[user.ID]; ok {
		oldKey := strings.ToLower(existing.Email)
		if oldKey != emailKey {
			delete(m.byEmail, oldKey)
		}
	}

	m.byID[user.ID] = *user
	m.byEmail[emailKey] = user.ID
	return nil
}

// Delete removes a user record
func (m *MemoryUserStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, strings.ToLower(user.Email))
	delete(m.byID, id)
	return nil
}

// MemoryRefreshTokenStore is an in-memory implementation of RefreshTokenStore
// Entries are keyed by token hash; expired entries are removed by a
// background cleanup goroutine
type MemoryRefreshTokenStore struct {
	mu              sync.RWMutex
	byHash          map[string]RefreshTokenRecord
	byUser          map[string]map[string]struct{} // user id -> set of hashes
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// NewMemoryRefreshTokenStore creates a new in-memory refresh token ledger
// cleanupInterval determines how often expired entries are removed (default: 5 minutes)
func NewMemoryRefreshTokenStore(cleanupInterval time.Duration) *MemoryRefreshTokenStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	store := &MemoryRefreshTokenStore{
		byHash:          make(map[string]RefreshTokenRecord),
		byUser:          make(map[string]map[string]struct{}),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	// Start background cleanup
	go store.periodicCleanup()

	return store
}

// Save persists a new ledger entry
func (m *MemoryRefreshTokenStore) Save(ctx context.Context, record *RefreshTokenRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.TokenHash == "" {
		return fmt.Errorf("token hash cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.byHash[record.TokenHash] = *record
	if m.byUser[record.UserID] == nil {
		m.byUser[record.UserID] = make(map[string]struct{})
	}
	m.byUser[record.UserID][record.TokenHash] = struct{}{}
	return nil
}

// FindByToken returns the ledger entry for the token
func (m *MemoryRefreshTokenStore) FindByToken(ctx context.Context, token string) (*RefreshTokenRecord, error) {
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byHash[hashToken(token)]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Revoke marks the entry revoked; revoking twice is a no-op
func (m *MemoryRefreshTokenStore) Revoke(ctx context.Context, token string, now time.Time) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	hash := hashToken(token)
	record, ok := m.byHash[hash]
	if !ok {
		return ErrNotFound
	}
	record.Revoke(now)
	m.byHash[hash] = record
	return nil
}

// RevokeAllForUser revokes every entry owned by the user
func (m *MemoryRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for hash := range m.byUser[userID] {
		record, ok := m.byHash[hash]
		if !ok {
			continue
		}
		record.Revoke(now)
		m.byHash[hash] = record
	}
	return nil
}

// IsLive reports whether the entry exists, is not revoked and has not expired
func (m *MemoryRefreshTokenStore) IsLive(ctx context.Context, token string, now time.Time) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("token cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byHash[hashToken(token)]
	if !ok {
		return false, nil
	}
	return record.IsLive(now), nil
}

// cleanupExpired removes entries whose expiry has passed
// Revoked-but-unexpired entries are kept so reuse detection still works
func (m *MemoryRefreshTokenStore) cleanupExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for hash, record := range m.byHash {
		if now.After(record.ExpiresAt) {
			delete(m.byHash, hash)
			if hashes, ok := m.byUser[record.UserID]; ok {
				delete(hashes, hash)
				if len(hashes) == 0 {
					delete(m.byUser, record.UserID)
				}
			}
		}
	}
}

// periodicCleanup runs background cleanup of expired entries
func (m *MemoryRefreshTokenStore) periodicCleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCleanup:
			return
		case <-ticker.C:
			m.cleanupExpired(time.Now())
		}
	}
}

// Close stops the background cleanup goroutine
// Call this when shutting down the application
func (m *MemoryRefreshTokenStore) Close() error {
	m.cleanupOnce.Do(func() {
		close(m.stopCleanup)
	})
	return nil
}

// Stats returns entry counts for monitoring and debugging
func (m *MemoryRefreshTokenStore) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int{
		"refresh_tokens": len(m.byHash),
		"users_tracked":  len(m.byUser),
	}
}
