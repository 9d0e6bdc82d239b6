package paymentwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_test_secret"

func signPayload(t *testing.T, secret string, timestamp int64, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func newTestVerifier(t *testing.T, at time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, 5*time.Minute)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v.WithClock(func() time.Time { return at })
}

func TestVerifyAcceptsFreshSignature(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"event":"transaction.updated"}`)
	v := newTestVerifier(t, now)

	header := signPayload(t, testSecret, now.Unix(), body)
	if err := v.Verify(header, body); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}

	// Skew inside the window, both directions.
	for _, skew := range []time.Duration{-4 * time.Minute, 4 * time.Minute} {
		ts := now.Add(skew).Unix()
		if err := v.Verify(signPayload(t, testSecret, ts, body), body); err != nil {
			t.Fatalf("skew %v should verify, got %v", skew, err)
		}
	}
}

func TestVerifyRejectsStaleTimestampBeforeDigest(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	body := []byte(`{}`)
	v := newTestVerifier(t, now)

	for _, skew := range []time.Duration{-6 * time.Minute, 6 * time.Minute} {
		ts := now.Add(skew).Unix()
		// Even a correctly signed payload is rejected outside the window.
		err := v.Verify(signPayload(t, testSecret, ts, body), body)
		if !errors.Is(err, ErrStaleTimestamp) {
			t.Fatalf("skew %v: expected stale timestamp, got %v", skew, err)
		}
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(t, now)

	header := signPayload(t, testSecret, now.Unix(), []byte(`{"amount":100}`))
	err := v.Verify(header, []byte(`{"amount":999}`))
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("expected digest mismatch, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	body := []byte(`{}`)
	v := newTestVerifier(t, now)

	header := signPayload(t, "whsec_other", now.Unix(), body)
	if err := v.Verify(header, body); !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("expected digest mismatch, got %v", err)
	}
}

func TestVerifyRejectsMalformedHeaders(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(t, now)
	body := []byte(`{}`)

	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"missing timestamp", "v1=deadbeef"},
		{"missing signature", fmt.Sprintf("t=%d", now.Unix())},
		{"non-numeric timestamp", "t=abc,v1=deadbeef"},
		{"garbage", "not-a-signature-header"},
		{"non-hex digest", fmt.Sprintf("t=%d,v1=zzzz", now.Unix())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.Verify(tt.header, body); !errors.Is(err, ErrMalformedHeader) {
				t.Fatalf("expected malformed header, got %v", err)
			}
		})
	}
}

func TestVerifyToleratesHeaderWhitespace(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	body := []byte(`{}`)
	v := newTestVerifier(t, now)

	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.", now.Unix())
	mac.Write(body)
	header := fmt.Sprintf("t=%d, v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))
	if err := v.Verify(header, body); err != nil {
		t.Fatalf("expected spaced header to verify, got %v", err)
	}
}

func TestNewVerifierValidation(t *testing.T) {
	if _, err := NewVerifier("", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewVerifier("secret", 0); err == nil {
		t.Fatal("expected error for zero tolerance")
	}
}
