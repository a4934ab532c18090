package lemonsqueezy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/digkill/gddforge/internal/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

// VerifySignature checks the hex HMAC-SHA256 of body against signature in constant time.
func VerifySignature(secret string, body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the hex signature Lemon Squeezy would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type webhookPayload struct {
	Meta struct {
		EventName  string         `json:"event_name"`
		CustomData map[string]any `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         json.RawMessage `json:"id"`
		Attributes struct {
			Status         string `json:"status"`
			UserEmail      string `json:"user_email"`
			FirstOrderItem struct {
				VariantID json.RawMessage `json:"variant_id"`
			} `json:"first_order_item"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseOrderEvent extracts the purchase event from a webhook body.
// Only malformed JSON is an error; missing fields leave the event non-actionable.
func ParseOrderEvent(body []byte) (models.PurchaseEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.PurchaseEvent{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return models.PurchaseEvent{
		EventType: p.Meta.EventName,
		OrderID:   scalarString(p.Data.ID),
		UserID:    anyString(p.Meta.CustomData["user_id"]),
		VariantID: scalarString(p.Data.Attributes.FirstOrderItem.VariantID),
		Status:    p.Data.Attributes.Status,
		Email:     p.Data.Attributes.UserEmail,
	}, nil
}

// scalarString accepts ids sent either as JSON strings or numbers.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func anyString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}
