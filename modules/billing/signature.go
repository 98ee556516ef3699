package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook signatures follow the timestamp-bound HMAC scheme used by Stripe
// and most processors: the header value is "t=<unix>,v1=<hex>" where the hex
// digest is HMAC-SHA256(secret, "<unix>.<payload>"). Binding the timestamp
// into the digest prevents replay of captured deliveries.

// SignPayload produces a signature header value for the given payload.
// Used by tests and by processors that delegate signing to us.
func SignPayload(secret string, payload []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(secret, payload, ts))
}

// VerifySignature validates a signature header against the raw payload.
// maxAge bounds the replay window; zero disables the timestamp check.
func VerifySignature(secret string, payload []byte, header string, maxAge time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrSignatureInvalid)
	}

	ts, digest, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if maxAge > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > maxAge {
			return fmt.Errorf("%w: timestamp too old (%v)", ErrSignatureInvalid, age)
		}
		// Tolerate modest clock skew but reject far-future timestamps.
		if age < -time.Minute {
			return fmt.Errorf("%w: timestamp is in the future", ErrSignatureInvalid)
		}
	}

	expected := computeSignature(secret, payload, ts)
	if !hmac.Equal([]byte(expected), []byte(digest)) {
		return fmt.Errorf("%w: digest mismatch", ErrSignatureInvalid)
	}

	return nil
}

func computeSignature(secret string, payload []byte, ts int64) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", ts)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func parseSignatureHeader(header string) (ts int64, digest string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("%w: invalid timestamp", ErrSignatureInvalid)
			}
		case "v1":
			digest = v
		}
	}

	if ts == 0 || digest == "" {
		return 0, "", fmt.Errorf("%w: missing signature components", ErrSignatureInvalid)
	}
	return ts, digest, nil
}
