package lemonsqueezy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/pkg/textutil"
)

const jsonAPIContentType = "application/vnd.api+json"

type ClientConfig struct {
	APIKey  string
	BaseURL string
	StoreID string
	Timeout time.Duration
}

// Client talks to the Lemon Squeezy REST API.
type Client struct {
	apiKey string
	http   *resty.Client
	log    zerolog.Logger

	mu      sync.Mutex
	storeID string
}

func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.lemonsqueezy.com"
	}

	return &Client{
		apiKey:  cfg.APIKey,
		storeID: cfg.StoreID,
		log:     log.With().Str("component", "lemonsqueezy").Logger(),
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("Accept", jsonAPIContentType).
			SetHeader("Content-Type", jsonAPIContentType).
			SetAuthToken(cfg.APIKey),
	}
}

type CheckoutRequest struct {
	VariantID   string
	UserID      string
	Email       string
	RedirectURL string
}

type resource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type relationship struct {
	Data resource `json:"data"`
}

type checkoutBody struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			CheckoutData struct {
				Custom map[string]string `json:"custom"`
				Email  string            `json:"email,omitempty"`
			} `json:"checkout_data"`
			ProductOptions struct {
				RedirectURL string `json:"redirect_url,omitempty"`
			} `json:"product_options"`
		} `json:"attributes"`
		Relationships struct {
			Store   relationship `json:"store"`
			Variant relationship `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

type checkoutResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

type storesResponse struct {
	Data []resource `json:"data"`
}

// CreateCheckout creates a hosted checkout and returns its URL.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	storeID, err := c.resolveStoreID(ctx)
	if err != nil {
		return "", err
	}

	var body checkoutBody
	body.Data.Type = "checkouts"
	body.Data.Attributes.CheckoutData.Custom = map[string]string{"user_id": req.UserID}
	body.Data.Attributes.CheckoutData.Email = req.Email
	body.Data.Attributes.ProductOptions.RedirectURL = req.RedirectURL
	body.Data.Relationships.Store = relationship{Data: resource{Type: "stores", ID: storeID}}
	body.Data.Relationships.Variant = relationship{Data: resource{Type: "variants", ID: req.VariantID}}

	var out checkoutResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/v1/checkouts")
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	if resp.IsError() {
		c.log.Error().
			Int("status", resp.StatusCode()).
			Str("body", textutil.Excerpt(resp.Body(), 512)).
			Msg("checkout creation rejected")
		return "", fmt.Errorf("%w: create checkout status=%d", ErrAPI, resp.StatusCode())
	}
	if out.Data.Attributes.URL == "" {
		return "", fmt.Errorf("%w: no checkout url in response", ErrAPI)
	}

	c.log.Info().
		Str("user_id", req.UserID).
		Str("variant_id", req.VariantID).
		Str("checkout_id", out.Data.ID).
		Msg("checkout created")
	return out.Data.Attributes.URL, nil
}

// resolveStoreID uses the configured store or the first store on the account.
func (c *Client) resolveStoreID(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.storeID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var out storesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/stores")
	if err != nil {
		return "", fmt.Errorf("list stores: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: list stores status=%d", ErrAPI, resp.StatusCode())
	}
	if len(out.Data) == 0 || out.Data[0].ID == "" {
		return "", ErrNoStore
	}

	c.mu.Lock()
	c.storeID = out.Data[0].ID
	c.mu.Unlock()

	c.log.Info().Str("store_id", out.Data[0].ID).Msg("store discovered")
	return out.Data[0].ID, nil
}

