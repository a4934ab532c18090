package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/gddforge/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model", MaxTokens: 1000, Timeout: 5 * time.Second}, zerolog.Nop())
}

func replyWith(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": text}},
		})
	}
}

func TestGenerate_ParsesStructuredReply(t *testing.T) {
	var gotReq messagesRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		replyWith(`Here you go:
{"gddText":"# Skyforge","mermaidChartCode":"graph TD\n A-->B","mathTableHTML":"<table></table>"}`)(w, r)
	})

	res, err := c.Generate(context.Background(), models.GDDForm{GameName: "Skyforge"})
	require.NoError(t, err)
	assert.Equal(t, "# Skyforge", res.DocumentText)
	assert.Equal(t, "graph TD\n A-->B", res.DiagramSource)
	assert.Equal(t, "<table></table>", res.TableMarkup)

	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, 1000, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Contains(t, gotReq.Messages[0].Content, "**Game Name:** Skyforge")
}

func TestGenerate_PlainTextFallsBack(t *testing.T) {
	c := newTestClient(t, replyWith("Just prose, no JSON here."))

	res, err := c.Generate(context.Background(), models.GDDForm{GameName: "X"})
	require.NoError(t, err)
	assert.Equal(t, "Just prose, no JSON here.", res.DocumentText)
	assert.Empty(t, res.DiagramSource)
	assert.Empty(t, res.TableMarkup)
}

func TestGenerate_NotConfigured(t *testing.T) {
	c := NewClient(Config{}, zerolog.Nop())
	_, err := c.Generate(context.Background(), models.GDDForm{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerate_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	_, err := c.Generate(context.Background(), models.GDDForm{})
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "overloaded_error")
}

func TestGenerate_EmptyReply(t *testing.T) {
	c := newTestClient(t, replyWith("   "))
	_, err := c.Generate(context.Background(), models.GDDForm{})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestGenerate_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, models.GDDForm{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.GDDResult
	}{
		{
			name: "bare object",
			in:   `{"gddText":"doc","mermaidChartCode":"g","mathTableHTML":"t"}`,
			want: models.GDDResult{DocumentText: "doc", DiagramSource: "g", TableMarkup: "t"},
		},
		{
			name: "fenced object",
			in:   "```json\n{\"gddText\":\"doc\"}\n```",
			want: models.GDDResult{DocumentText: "doc"},
		},
		{
			name: "broken json",
			in:   `{"gddText": "doc"`,
			want: models.GDDResult{DocumentText: `{"gddText": "doc"`},
		},
		{
			name: "object without document",
			in:   `note {"foo":1}`,
			want: models.GDDResult{DocumentText: `note {"foo":1}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReply(tt.in))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(models.GDDForm{
		GameName: "Skyforge",
		Platform: []string{"PC", " ", "Switch"},
		Characters: []models.Character{
			{Name: "Ayla", Role: "Hero"},
			{Role: "Villain"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "**Game Name:** Skyforge")
	assert.Contains(t, prompt, "**Tagline:** Not specified")
	assert.Contains(t, prompt, "**Platforms:** PC, Switch")
	assert.Contains(t, prompt, "**Character 1:**\n- Name: Ayla\n- Role: Hero")
	assert.Contains(t, prompt, "**Character 2:**\n- Name: Unnamed")
	assert.NotContains(t, prompt, "No characters defined")
	assert.True(t, strings.Contains(prompt, `"gddText"`))
}

func TestBuildPrompt_NoCharacters(t *testing.T) {
	prompt, err := BuildPrompt(models.GDDForm{})
	require.NoError(t, err)
	assert.Contains(t, prompt, "### CHARACTERS\nNo characters defined\n\n### LEVELS & WORLD")
	assert.Contains(t, prompt, "**Platforms:** Not specified")
}
