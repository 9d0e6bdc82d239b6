package paymentwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Verification failures are deliberately indistinct to callers; the webhook
// endpoint answers every one of them with the same generic 401. The separate
// sentinels exist only so logs can say what actually went wrong.
var (
	ErrMalformedHeader = errors.New("malformed signature header")
	ErrStaleTimestamp  = errors.New("signature timestamp outside tolerance")
	ErrDigestMismatch  = errors.New("signature digest mismatch")
	errSecretRequired  = errors.New("signing secret is required")
	errNegativeWindow  = errors.New("tolerance must be positive")
)

// Verifier checks gateway webhook signatures of the form
// "t=<unix>,v1=<hex>", signed with HMAC-SHA256 over "<t>.<raw body>".
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier builds a signature verifier with the given staleness window.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, errSecretRequired
	}
	if tolerance <= 0 {
		return nil, errNegativeWindow
	}
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}, nil
}

// WithClock overrides the time source. Test hook.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	if now != nil {
		v.now = now
	}
	return v
}

// Verify validates header against body. The staleness window is checked
// before any digest work so replayed payloads are rejected cheaply.
func (v *Verifier) Verify(header string, body []byte) error {
	timestamp, provided, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := v.now().Unix() - timestamp
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > v.tolerance {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(provided)
	if err != nil {
		return ErrMalformedHeader
	}
	if !hmac.Equal(expected, decoded) {
		return ErrDigestMismatch
	}
	return nil
}

func parseSignatureHeader(header string) (int64, string, error) {
	var timestampRaw, signature string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestampRaw = value
		case "v1":
			signature = value
		}
	}
	if timestampRaw == "" || signature == "" {
		return 0, "", ErrMalformedHeader
	}
	timestamp, err := strconv.ParseInt(timestampRaw, 10, 64)
	if err != nil {
		return 0, "", ErrMalformedHeader
	}
	return timestamp, signature, nil
}
