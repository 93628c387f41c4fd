// Package memstore is an in-memory UserStore for tests and single-process
// demos. Uniqueness of emails is enforced under one lock so concurrent
// duplicate registrations resolve to exactly one winner.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drithme/authcore"
)

// Store implements authcore.UserStore in process memory.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*authcore.Account
	byEmail map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*authcore.Account),
		byEmail: make(map[string]string),
	}
}

// FindByEmail returns the account for email or authcore.ErrAccountNotFound.
func (s *Store) FindByEmail(_ context.Context, email string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	return clone(s.byID[id]), nil
}

// Create inserts a new account, rejecting duplicate emails atomically.
func (s *Store) Create(_ context.Context, in authcore.CreateAccount) (*authcore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[in.Email]; taken {
		return nil, authcore.ErrEmailAlreadyRegistered
	}

	now := time.Now()
	acct := &authcore.Account{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[acct.ID] = acct
	s.byEmail[acct.Email] = acct.ID
	return clone(acct), nil
}

// Update applies the non-nil fields. VerifiedAt is written only while the
// stored value is still nil, keeping verification idempotent.
func (s *Store) Update(_ context.Context, email string, upd authcore.AccountUpdate) (*authcore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	acct := s.byID[id]

	if upd.VerifiedAt != nil && acct.VerifiedAt == nil {
		at := *upd.VerifiedAt
		acct.VerifiedAt = &at
	}
	if upd.TwoFactorEnabled != nil {
		acct.TwoFactorEnabled = *upd.TwoFactorEnabled
	}
	acct.UpdatedAt = time.Now()
	return clone(acct), nil
}

func clone(a *authcore.Account) *authcore.Account {
	out := *a
	if a.VerifiedAt != nil {
		at := *a.VerifiedAt
		out.VerifiedAt = &at
	}
	return &out
}
