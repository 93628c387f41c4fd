package authcore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix     = "a2c"
	challengeRecordVersion = 1
)

// redisChallengeStore keeps pending second-factor challenges in Redis so
// multiple instances can serve the password step and the TOTP step of one
// login. Records are compact binary, TTL-bounded, and mutated under WATCH
// so concurrent wrong-code submissions count every attempt exactly once.
type redisChallengeStore struct {
	redis *redis.Client
}

func newRedisChallengeStore(client *redis.Client) *redisChallengeStore {
	return &redisChallengeStore{redis: client}
}

func (s *redisChallengeStore) key(id string) string {
	return challengeKeyPrefix + ":" + id
}

func (s *redisChallengeStore) Save(ctx context.Context, id string, rec *secondFactorChallenge, ttl time.Duration) error {
	encoded, err := encodeChallenge(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(id), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}

func (s *redisChallengeStore) Get(ctx context.Context, id string) (*secondFactorChallenge, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeBackend, err)
	}

	rec, err := decodeChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > rec.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(id)).Result()
		return nil, errChallengeExpired
	}
	return rec, nil
}

func (s *redisChallengeStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return n > 0, nil
}

func (s *redisChallengeStore) RecordFailure(ctx context.Context, id string, maxAttempts int) (bool, error) {
	const maxRetries = 4
	key := s.key(id)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			rec, err := decodeChallenge(data)
			if err != nil {
				return err
			}
			if time.Now().Unix() > rec.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeExpired
			}

			rec.Attempts++
			if int(rec.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeExpired
			}

			updated, err := encodeChallenge(rec)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, errChallengeNotFound
			}
			if errors.Is(err, errChallengeExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", errChallengeBackend, err)
		}
		return exceeded, nil
	}

	return false, errChallengeNotFound
}

func encodeChallenge(rec *secondFactorChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion)

	if err := binary.Write(&buf, binary.BigEndian, rec.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt); err != nil {
		return nil, err
	}

	if len(rec.AccountID) > 65535 || len(rec.Email) > 65535 {
		return nil, errors.New("challenge field length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(rec.AccountID))); err != nil {
		return nil, err
	}
	buf.WriteString(rec.AccountID)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(rec.Email))); err != nil {
		return nil, err
	}
	buf.WriteString(rec.Email)

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*secondFactorChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion {
		return nil, errors.New("invalid challenge record version")
	}

	rec := &secondFactorChallenge{}
	if err := binary.Read(reader, binary.BigEndian, &rec.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.ExpiresAt); err != nil {
		return nil, err
	}

	var accountLen uint16
	if err := binary.Read(reader, binary.BigEndian, &accountLen); err != nil {
		return nil, err
	}
	account := make([]byte, accountLen)
	if _, err := io.ReadFull(reader, account); err != nil {
		return nil, err
	}
	rec.AccountID = string(account)

	var emailLen uint16
	if err := binary.Read(reader, binary.BigEndian, &emailLen); err != nil {
		return nil, err
	}
	email := make([]byte, emailLen)
	if _, err := io.ReadFull(reader, email); err != nil {
		return nil, err
	}
	rec.Email = string(email)

	return rec, nil
}
