package identifier_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/identifier"
)

func TestAllocate_Format(t *testing.T) {
	alloc := identifier.NewAllocator(func(_ context.Context, _ string) (bool, error) {
		return false, nil
	})

	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id, err := alloc.Allocate(context.Background())
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("identifier %q does not match format", id)
		}
		seen[id] = true
	}

	if len(seen) < 95 {
		t.Fatalf("expected near-unique identifiers, got %d distinct of 100", len(seen))
	}
}

func TestAllocate_RetriesOnCollision(t *testing.T) {
	calls := 0
	alloc := identifier.NewAllocator(func(_ context.Context, _ string) (bool, error) {
		calls++
		// First two generated values collide, third is free.
		return calls < 3, nil
	})

	id, err := alloc.Allocate(context.Background())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected an identifier")
	}
	if calls != 3 {
		t.Fatalf("expected 3 existence checks, got %d", calls)
	}
}

func TestAllocate_ExhaustedAfterCeiling(t *testing.T) {
	calls := 0
	alloc := identifier.NewAllocator(func(_ context.Context, _ string) (bool, error) {
		calls++
		return true, nil
	})

	_, err := alloc.Allocate(context.Background())
	if !errors.Is(err, domain.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if calls != 10 {
		t.Fatalf("expected 10 attempts, got %d", calls)
	}
}

func TestAllocate_PropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	alloc := identifier.NewAllocator(func(_ context.Context, _ string) (bool, error) {
		return false, boom
	})

	_, err := alloc.Allocate(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestNormalizeAndValid(t *testing.T) {
	if got := identifier.Normalize("  x1y2z3a4 "); got != "X1Y2Z3A4" {
		t.Fatalf("Normalize = %q", got)
	}

	cases := map[string]bool{
		"X1Y2Z3A4":  true,
		"ABCDEFGH":  true,
		"12345678":  true,
		"x1y2z3a4":  false, // lowercase must be normalized first
		"X1Y2Z3A":   false,
		"X1Y2Z3A45": false,
		"X1Y2-3A4":  false,
		"":          false,
	}
	for id, want := range cases {
		if got := identifier.Valid(id); got != want {
			t.Errorf("Valid(%q) = %v, want %v", id, got, want)
		}
	}
}
