package paymentwebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stubIdempotencyStore struct {
	keys   map[string]bool
	setErr error
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{keys: map[string]bool{}}
}

func (s *stubIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("spg:idempotency:%s:%s", scope, id)
}

func (s *stubIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func TestGuardMarksFirstDeliveryOnly(t *testing.T) {
	store := newStubIdempotencyStore()
	g, err := NewIdempotencyGuard(store, 48*time.Hour, "payment-webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}

	seen, err := g.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Fatal("first delivery must not be seen")
	}

	seen, err = g.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seen {
		t.Fatal("second delivery must be seen")
	}

	for key := range store.keys {
		if !strings.HasPrefix(key, "spg:idempotency:payment-webhook:") {
			t.Fatalf("key missing scope namespace: %q", key)
		}
	}
}

func TestGuardDeleteAllowsReprocessing(t *testing.T) {
	store := newStubIdempotencyStore()
	g, _ := NewIdempotencyGuard(store, time.Hour, "payment-webhook")

	if _, err := g.CheckAndMark(context.Background(), "evt_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Delete(context.Background(), "evt_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	seen, err := g.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Fatal("released key must be reprocessable")
	}
}

func TestGuardErrors(t *testing.T) {
	store := newStubIdempotencyStore()
	g, _ := NewIdempotencyGuard(store, time.Hour, "payment-webhook")

	if _, err := g.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty key")
	}

	store.setErr = errors.New("redis down")
	if _, err := g.CheckAndMark(context.Background(), "evt_1"); err == nil {
		t.Fatal("expected store error to propagate")
	}

	if _, err := NewIdempotencyGuard(nil, time.Hour, "scope"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(store, time.Hour, ""); err == nil {
		t.Fatal("expected error for empty scope")
	}
}
