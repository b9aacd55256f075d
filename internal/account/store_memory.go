package account

import (
	"context"
	"fmt"
	"sync"

	"riscguard/pkg/platform/sentinel"
)

// linkedAccount is the in-memory view of a locally known account linked to
// a provider subject.
type linkedAccount struct {
	Email         string
	TokensRevoked bool
	Suspended     bool
}

// InMemory implements Repository with a mutex-guarded map. Used in tests
// and in dev environments without Redis.
type InMemory struct {
	mu       sync.Mutex
	accounts map[string]*linkedAccount
}

// NewInMemory creates an empty in-memory account store.
func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[string]*linkedAccount)}
}

// Link registers an account for a provider subject. Test/dev seeding hook.
func (s *InMemory) Link(subjectID, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[subjectID] = &linkedAccount{Email: email}
}

// RevokeTokensBySubject marks the linked account's tokens revoked.
// Revoking twice is a no-op success.
func (s *InMemory) RevokeTokensBySubject(ctx context.Context, subjectID string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[subjectID]
	if !ok {
		return Result{}, fmt.Errorf("subject %q: %w", subjectID, sentinel.ErrNotFound)
	}
	acct.TokensRevoked = true
	return Result{Success: true, Email: acct.Email}, nil
}

// SuspendAccountBySubject suspends the linked account and revokes its
// tokens. Suspending twice is a no-op success.
func (s *InMemory) SuspendAccountBySubject(ctx context.Context, subjectID string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[subjectID]
	if !ok {
		return Result{}, fmt.Errorf("subject %q: %w", subjectID, sentinel.ErrNotFound)
	}
	acct.Suspended = true
	acct.TokensRevoked = true
	return Result{Success: true, Email: acct.Email}, nil
}

// IsSuspended reports whether the subject's account is suspended. Test
// observation hook.
func (s *InMemory) IsSuspended(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[subjectID]
	return ok && acct.Suspended
}

// TokensRevoked reports whether the subject's tokens were revoked. Test
// observation hook.
func (s *InMemory) TokensRevoked(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[subjectID]
	return ok && acct.TokensRevoked
}
