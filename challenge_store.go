package authcore

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	errChallengeNotFound = errors.New("second factor challenge not found")
	errChallengeExpired  = errors.New("second factor challenge expired")
	errChallengeExceeded = errors.New("second factor challenge attempts exceeded")
	errChallengeBackend  = errors.New("second factor challenge backend unavailable")
)

// secondFactorChallenge is the server-side record of a login waiting in
// the AwaitingSecondFactor state. It is destroyed on success (single
// redemption) and when the attempt budget is exhausted.
type secondFactorChallenge struct {
	AccountID string
	Email     string
	ExpiresAt int64
	Attempts  uint16
}

// challengeStore persists pending second-factor challenges. Get must
// report expiry; Delete must report whether the record still existed so
// redemption stays single-use under races; RecordFailure must destroy the
// record once maxAttempts is reached and report that it did.
type challengeStore interface {
	Save(ctx context.Context, id string, rec *secondFactorChallenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*secondFactorChallenge, error)
	Delete(ctx context.Context, id string) (bool, error)
	RecordFailure(ctx context.Context, id string, maxAttempts int) (exceeded bool, err error)
}

type memoryChallengeStore struct {
	mu      sync.Mutex
	records map[string]*secondFactorChallenge
}

func newMemoryChallengeStore() *memoryChallengeStore {
	return &memoryChallengeStore{records: make(map[string]*secondFactorChallenge)}
}

func (s *memoryChallengeStore) Save(_ context.Context, id string, rec *secondFactorChallenge, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	s.records[id] = &clone
	return nil
}

func (s *memoryChallengeStore) Get(_ context.Context, id string) (*secondFactorChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, errChallengeNotFound
	}
	if time.Now().Unix() > rec.ExpiresAt {
		delete(s.records, id)
		return nil, errChallengeExpired
	}
	clone := *rec
	return &clone, nil
}

func (s *memoryChallengeStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

func (s *memoryChallengeStore) RecordFailure(_ context.Context, id string, maxAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return false, errChallengeNotFound
	}
	if time.Now().Unix() > rec.ExpiresAt {
		delete(s.records, id)
		return false, errChallengeExpired
	}
	rec.Attempts++
	if int(rec.Attempts) >= maxAttempts {
		delete(s.records, id)
		return true, nil
	}
	return false, nil
}
