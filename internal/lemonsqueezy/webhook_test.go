package lemonsqueezy

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paidOrder = `{
  "meta": {"event_name": "order_created", "custom_data": {"user_id": "uid-42"}},
  "data": {
    "id": "1001",
    "attributes": {
      "status": "paid",
      "user_email": "dev@studio.test",
      "first_order_item": {"variant_id": 555}
    }
  }
}`

func TestVerifySignature(t *testing.T) {
	body := []byte(paidOrder)
	good := Sign("whsec", body)

	tests := []struct {
		name      string
		signature string
		body      []byte
		wantErr   error
	}{
		{"valid", good, body, nil},
		{"missing", "", body, ErrMissingSignature},
		{"not hex", "zz-not-hex", body, ErrInvalidSignature},
		{"wrong secret", Sign("other", body), body, ErrInvalidSignature},
		{"tampered body", good, []byte(paidOrder + " "), ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature("whsec", tt.body, tt.signature)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseOrderEvent_PaidOrder(t *testing.T) {
	evt, err := ParseOrderEvent([]byte(paidOrder))
	require.NoError(t, err)

	assert.Equal(t, "order_created", evt.EventType)
	assert.Equal(t, "1001", evt.OrderID)
	assert.Equal(t, "uid-42", evt.UserID)
	assert.Equal(t, "555", evt.VariantID)
	assert.Equal(t, "paid", evt.Status)
	assert.Equal(t, "dev@studio.test", evt.Email)
	assert.True(t, evt.Actionable())
}

func TestParseOrderEvent_NotActionable(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"refund event", `{"meta":{"event_name":"order_refunded","custom_data":{"user_id":"u"}},"data":{"id":1,"attributes":{"status":"refunded","first_order_item":{"variant_id":"v"}}}}`},
		{"pending order", `{"meta":{"event_name":"order_created","custom_data":{"user_id":"u"}},"data":{"id":1,"attributes":{"status":"pending","first_order_item":{"variant_id":"v"}}}}`},
		{"no user id", `{"meta":{"event_name":"order_created"},"data":{"id":1,"attributes":{"status":"paid","first_order_item":{"variant_id":"v"}}}}`},
		{"no variant", `{"meta":{"event_name":"order_created","custom_data":{"user_id":"u"}},"data":{"id":1,"attributes":{"status":"paid"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := ParseOrderEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.False(t, evt.Actionable())
		})
	}
}

func TestParseOrderEvent_Malformed(t *testing.T) {
	_, err := ParseOrderEvent([]byte(`{"meta":`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestBuildCheckoutURL(t *testing.T) {
	got, err := BuildCheckoutURL("https://aigdd.lemonsqueezy.com/checkout/buy/abc?embed=1", "uid-42", "dev@studio.test")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/checkout/buy/abc", u.Path)
	q := u.Query()
	assert.Equal(t, "uid-42", q.Get("checkout[custom][user_id]"))
	assert.Equal(t, "dev@studio.test", q.Get("checkout[email]"))
	assert.Equal(t, "1", q.Get("embed"))
}

func TestBuildCheckoutURL_NoEmail(t *testing.T) {
	got, err := BuildCheckoutURL("https://shop.test/buy/x", "u1", "")
	require.NoError(t, err)

	u, _ := url.Parse(got)
	assert.False(t, u.Query().Has("checkout[email]"))
}

func TestBuildCheckoutURL_Relative(t *testing.T) {
	_, err := BuildCheckoutURL("/buy/x", "u1", "")
	assert.Error(t, err)
}
