// Package stripe is the payment provider adapter: webhook signature
// verification over the raw request body, and payment intent creation.
package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds how old a signed webhook timestamp may be.
// Older payloads are rejected to limit replay of captured requests.
const DefaultTolerance = 5 * time.Minute

// Event is a payment provider notification, decoded only after its
// signature has been verified.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object PaymentIntent `json:"object"`
	} `json:"data"`
}

// PaymentIntent is the payment object embedded in an event.
type PaymentIntent struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"` // smallest currency unit
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// ErrInvalidSignature is returned by ConstructEvent when the payload
// cannot be authenticated.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// VerifySignature reports whether the signature header authenticates the
// exact raw payload bytes under the shared secret. It must run before the
// payload is parsed. It returns false, never an error, on a missing or
// malformed header, a stale timestamp, or an empty secret (fail closed).
func VerifySignature(payload []byte, header, secret string) bool {
	return verifySignatureAt(payload, header, secret, DefaultTolerance, time.Now())
}

// verifySignatureAt is the clock-injectable core of VerifySignature.
func verifySignatureAt(payload []byte, header, secret string, tolerance time.Duration, now time.Time) bool {
	if secret == "" || header == "" {
		return false
	}

	timestamp, signatures := parseSignatureHeader(header)
	if timestamp == 0 || len(signatures) == 0 {
		return false
	}

	if tolerance > 0 {
		ts := time.Unix(timestamp, 0)
		if ts.Before(now.Add(-tolerance)) || ts.After(now.Add(tolerance)) {
			return false
		}
	}

	expected := computeSignature(payload, timestamp, secret)
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return true
		}
	}
	return false
}

// ConstructEvent verifies the signature and then, only then, decodes the
// payload into an Event.
func ConstructEvent(payload []byte, header, secret string) (Event, error) {
	if !VerifySignature(payload, header, secret) {
		return Event{}, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("decoding webhook payload: %w", err)
	}
	return event, nil
}

// parseSignatureHeader extracts the timestamp and every v1 signature from
// a header of the form "t=<unix>,v1=<hex>[,v1=<hex>...]". Unknown schemes
// are ignored.
func parseSignatureHeader(header string) (int64, [][]byte) {
	var timestamp int64
	var signatures [][]byte

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	return timestamp, signatures
}

// computeSignature is HMAC-SHA256 over "<timestamp>.<payload>".
func computeSignature(payload []byte, timestamp int64, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}
