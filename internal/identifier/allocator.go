// Package identifier generates and validates booking IDs: 8-character
// uppercase alphanumeric values that serve as both record key and bearer
// credential.
package identifier

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/stagelink/talent-bookings/internal/domain"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length   = 8

	// maxAttempts bounds collision retries. Hitting it fails loudly with
	// ErrExhausted rather than risking a duplicate.
	maxAttempts = 10
)

var pattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// ExistsFunc reports whether an identifier is already taken. The allocator
// does not reserve identifiers; callers must treat a persistence-layer
// conflict as the true uniqueness oracle and retry.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

type Allocator struct {
	exists   ExistsFunc
	attempts int
}

func NewAllocator(exists ExistsFunc) *Allocator {
	return &Allocator{exists: exists, attempts: maxAttempts}
}

func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for i := 0; i < a.attempts; i++ {
		id, err := generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate identifier: %w", err)
		}

		taken, err := a.exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check identifier: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", domain.ErrExhausted
}

func generate() (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// Normalize uppercases and trims an inbound identifier. Input is
// case-insensitive on the wire; storage and comparison always use the
// normalized form.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Valid reports whether id matches the canonical format. Checked before any
// lookup so malformed input is rejected cheaply.
func Valid(id string) bool {
	return pattern.MatchString(id)
}
