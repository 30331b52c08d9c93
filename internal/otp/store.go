// Package otp holds pending one-time codes keyed by email address. Codes are
// single-use, expire after a fixed window and are invalidated by re-issue.
package otp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	codeMin = 100000
	codeMax = 999999

	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
)

type challenge struct {
	codeHash  []byte
	expiresAt time.Time
	attempts  int
}

// Store is an in-memory challenge store. All access is linearized under one
// mutex so a verify racing a re-issue cannot resurrect a consumed code.
type Store struct {
	mu          sync.Mutex
	challenges  map[string]*challenge
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	random      io.Reader
}

type Option func(*Store)

// WithClock injects a clock, used by tests to drive expiry deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRandom injects the random source used for code generation.
func WithRandom(r io.Reader) Option {
	return func(s *Store) { s.random = r }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		challenges:  make(map[string]*challenge),
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		random:      rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a 6-digit code for key, replacing any live challenge for
// the same key. The returned code is handed to the notification channel; only
// its hash is retained.
func (s *Store) Issue(key string) (string, error) {
	code, err := s.generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[key] = &challenge{
		codeHash:  hash,
		expiresAt: s.now().Add(s.ttl),
	}
	return code, nil
}

// Verify checks candidate against the live challenge for key. A match
// consumes the challenge. A mismatch leaves it intact until the attempt
// ceiling, after which the challenge is destroyed and the caller must
// re-issue. Expired challenges are destroyed on sight.
func (s *Store) Verify(key, candidate string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[key]
	if !ok {
		return false
	}

	if s.now().After(ch.expiresAt) {
		delete(s.challenges, key)
		return false
	}

	if err := bcrypt.CompareHashAndPassword(ch.codeHash, []byte(candidate)); err != nil {
		ch.attempts++
		if ch.attempts >= s.maxAttempts {
			delete(s.challenges, key)
		}
		return false
	}

	delete(s.challenges, key)
	return true
}

// Live reports whether a non-expired challenge exists for key.
func (s *Store) Live(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[key]
	if !ok {
		return false
	}
	return !s.now().After(ch.expiresAt)
}

func (s *Store) generateCode() (string, error) {
	var buf [4]byte
	if _, err := io.ReadFull(s.random, buf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(buf[:])
	code := codeMin + int(n%(codeMax-codeMin+1))
	return fmt.Sprintf("%06d", code), nil
}
