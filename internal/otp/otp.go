// Package otp generates one-time passcodes and keeps them in Redis until they
// expire or are consumed.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// TTL is how long a passcode stays valid.
	TTL = 2 * time.Minute

	// MaxAttempts wrong codes within AttemptWindow invalidate the pending
	// passcode. The count survives a resend.
	MaxAttempts   = 5
	AttemptWindow = 15 * time.Minute
)

var (
	// ErrNotFound is returned when no live passcode exists for an email.
	ErrNotFound = errors.New("otp not found or expired")

	// ErrTooManyAttempts is returned once MaxAttempts wrong codes were seen.
	ErrTooManyAttempts = errors.New("too many otp attempts")
)

// Store keeps pending passcodes keyed by email.
type Store interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)

	// Delete removes the passcode and its attempt count.
	Delete(ctx context.Context, email string) error

	// RecordFailure counts a wrong code. When the count reaches MaxAttempts
	// the passcode is deleted and ErrTooManyAttempts returned.
	RecordFailure(ctx context.Context, email string) error
}

// Generate returns a uniformly random six digit code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store on an existing client.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func normalise(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func key(email string) string {
	return "otp:" + normalise(email)
}

func attemptsKey(email string) string {
	return "otp:attempts:" + normalise(email)
}

func (s *redisStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, email string) (string, error) {
	code, err := s.client.Get(ctx, key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read otp: %w", err)
	}
	return code, nil
}

func (s *redisStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, key(email), attemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

func (s *redisStore) RecordFailure(ctx context.Context, email string) error {
	n, err := s.client.Incr(ctx, attemptsKey(email)).Result()
	if err != nil {
		return fmt.Errorf("failed to record otp attempt: %w", err)
	}
	if n == 1 {
		if err := s.client.Expire(ctx, attemptsKey(email), AttemptWindow).Err(); err != nil {
			return fmt.Errorf("failed to record otp attempt: %w", err)
		}
	}
	if n < MaxAttempts {
		return nil
	}

	if err := s.client.Del(ctx, key(email)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate otp: %w", err)
	}
	return ErrTooManyAttempts
}
