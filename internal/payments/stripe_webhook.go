package payments

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

// Stripe webhook event types this service consumes.
const (
	StripeEventPaymentSucceeded = "payment_intent.succeeded"
	StripeEventPaymentFailed    = "payment_intent.payment_failed"
)

var (
	// ErrWebhookSignatureInvalid indicates no signature in the header matched.
	ErrWebhookSignatureInvalid = errors.New("payments: webhook signature invalid")
	// ErrWebhookTimestampExpired indicates the signed timestamp fell outside the tolerance window.
	ErrWebhookTimestampExpired = errors.New("payments: webhook timestamp expired")
)

// StripeEvent is the subset of a Stripe webhook envelope this service reads.
type StripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object StripeEventIntent `json:"object"`
	} `json:"data"`
}

// StripeEventIntent is the PaymentIntent payload inside an event.
type StripeEventIntent struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// VerifyStripeSignature checks a Stripe-Signature header against the payload.
// The header carries a unix timestamp and one or more v1 HMAC-SHA256 digests
// of "<timestamp>.<payload>"; any matching digest within the tolerance window
// accepts the event.
func VerifyStripeSignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return errors.New("payments: webhook secret is required")
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrWebhookSignatureInvalid)
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return fmt.Errorf("%w: missing timestamp or v1 signature", ErrWebhookSignatureInvalid)
	}

	if tolerance > 0 {
		signedAt := time.Unix(timestamp, 0)
		if now.Sub(signedAt) > tolerance || signedAt.Sub(now) > tolerance {
			return ErrWebhookTimestampExpired
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrWebhookSignatureInvalid
}

// ParseStripeEvent decodes a verified webhook payload.
func ParseStripeEvent(payload []byte) (StripeEvent, error) {
	var event StripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return StripeEvent{}, fmt.Errorf("payments: decode webhook event: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return StripeEvent{}, errors.New("payments: webhook event missing id or type")
	}
	return event, nil
}
