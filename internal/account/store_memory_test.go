package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"riscguard/pkg/platform/sentinel"
)

type AccountStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *AccountStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.store.Link("google-sub-1", "user@example.com")
	s.ctx = context.Background()
}

func TestAccountStoreSuite(t *testing.T) {
	suite.Run(t, new(AccountStoreSuite))
}

func (s *AccountStoreSuite) TestRevokeTokens() {
	s.Run("revokes tokens for a linked subject", func() {
		result, err := s.store.RevokeTokensBySubject(s.ctx, "google-sub-1")
		s.Require().NoError(err)
		s.True(result.Success)
		s.Equal("user@example.com", result.Email)
		s.True(s.store.TokensRevoked("google-sub-1"))
	})

	s.Run("is idempotent", func() {
		_, err := s.store.RevokeTokensBySubject(s.ctx, "google-sub-1")
		s.Require().NoError(err)
		result, err := s.store.RevokeTokensBySubject(s.ctx, "google-sub-1")
		s.Require().NoError(err)
		s.True(result.Success)
	})

	s.Run("returns ErrNotFound for unknown subjects", func() {
		_, err := s.store.RevokeTokensBySubject(s.ctx, "never-linked")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AccountStoreSuite) TestSuspendAccount() {
	s.Run("suspends and revokes tokens together", func() {
		result, err := s.store.SuspendAccountBySubject(s.ctx, "google-sub-1")
		s.Require().NoError(err)
		s.True(result.Success)
		s.True(s.store.IsSuspended("google-sub-1"))
		s.True(s.store.TokensRevoked("google-sub-1"))
	})

	s.Run("is idempotent", func() {
		_, err := s.store.SuspendAccountBySubject(s.ctx, "google-sub-1")
		s.Require().NoError(err)
		result, err := s.store.SuspendAccountBySubject(s.ctx, "google-sub-1")
		s.Require().NoError(err)
		s.True(result.Success)
	})

	s.Run("returns ErrNotFound for unknown subjects", func() {
		_, err := s.store.SuspendAccountBySubject(s.ctx, "never-linked")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AccountStoreSuite) TestObservationHooksOnUnknownSubject() {
	s.False(s.store.IsSuspended("never-linked"))
	s.False(s.store.TokensRevoked("never-linked"))
}
