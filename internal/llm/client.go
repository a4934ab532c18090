package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/digkill/gddforge/internal/models"
	"github.com/digkill/gddforge/pkg/textutil"
)

const anthropicVersion = "2023-06-01"

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client calls the Anthropic Messages API to write a game design document.
type Client struct {
	apiKey    string
	model     string
	maxTokens int
	http      *resty.Client
	log       zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 16000
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.anthropic.com"
	}

	return &Client{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: maxTokens,
		log:       log.With().Str("component", "llm").Logger(),
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("x-api-key", cfg.APIKey).
			SetHeader("anthropic-version", anthropicVersion).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type apiError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate renders the prompt for form, calls the model and parses its reply.
func (c *Client) Generate(ctx context.Context, form models.GDDForm) (models.GDDResult, error) {
	if c.apiKey == "" {
		return models.GDDResult{}, ErrNotConfigured
	}

	prompt, err := BuildPrompt(form)
	if err != nil {
		return models.GDDResult{}, err
	}

	started := time.Now()
	c.log.Info().Str("model", c.model).Str("game", form.GameName).Msg("requesting document generation")

	var (
		out     messagesResponse
		failure apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(messagesRequest{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			Messages:  []message{{Role: "user", Content: prompt}},
		}).
		SetResult(&out).
		SetError(&failure).
		Post("/v1/messages")
	if err != nil {
		if isTimeout(err) {
			c.log.Warn().Dur("elapsed", time.Since(started)).Msg("generation timed out")
			return models.GDDResult{}, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return models.GDDResult{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	if resp.IsError() {
		c.log.Error().
			Int("status", resp.StatusCode()).
			Str("error_type", failure.Error.Type).
			Str("body", textutil.Excerpt(resp.Body(), 512)).
			Msg("generation request failed")
		return models.GDDResult{}, fmt.Errorf("%w: status=%d type=%s message=%s", ErrUpstream, resp.StatusCode(), failure.Error.Type, failure.Error.Message)
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return models.GDDResult{}, ErrEmptyReply
	}

	c.log.Info().
		Str("message_id", out.ID).
		Str("stop_reason", out.StopReason).
		Dur("elapsed", time.Since(started)).
		Msg("document generated")

	return ParseReply(text.String()), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

