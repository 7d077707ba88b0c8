package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/ryankkien/pokemon-showdown/internal/battle"
	"github.com/ryankkien/pokemon-showdown/internal/prompt"
)

// Total request attempts per decision: one initial try plus two retries.
const decisionAttempts = 3

// Decider produces a raw textual action proposal for a battle state. The
// reply is free text; mapping it onto a legal choice is the parser's job.
type Decider interface {
	GetAction(ctx context.Context, snap *battle.Snapshot, choices []string) string
}

// Client calls an OpenAI-compatible chat-completions endpoint. On transport
// failure or a non-success status it retries immediately up to the attempt
// ceiling, then falls back to the first legal choice instead of surfacing
// the error.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *fasthttp.Client
	prompts *prompt.Catalog
	logger  *zap.Logger

	timeout     time.Duration
	maxTokens   int
	temperature float64
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

func NewClient(baseURL, apiKey, model string, prompts *prompt.Catalog, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		http:        &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		prompts:     prompts,
		logger:      logger,
		timeout:     30 * time.Second,
		maxTokens:   150,
		temperature: 0.3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GetAction serializes the snapshot and legal choices into a prompt and asks
// the backend for a decision. On any successful attempt the reply content is
// returned unmodified. After all attempts fail the first legal choice is
// returned as a deterministic fallback.
func (c *Client) GetAction(ctx context.Context, snap *battle.Snapshot, choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	userPrompt := BuildPrompt(c.prompts, snap, choices)
	system := c.prompts.Get("decision.system")

	var lastErr error
	for attempt := 1; attempt <= decisionAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		content, err := c.complete(ctx, system, userPrompt)
		if err == nil {
			return content
		}
		lastErr = err
		c.logger.Warn("decision_attempt_failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	c.logger.Warn("decision_fallback", zap.String("choice", choices[0]), zap.Error(lastErr))
	return choices[0]
}

func (c *Client) complete(ctx context.Context, system, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + "/chat/completions")
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.SetBody(body)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("llm api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty completion")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// MockDecider is a deterministic in-process backend used when no LLM
// endpoint is configured and in tests. It prefers the first move-class
// choice and phrases the reply like a real completion.
type MockDecider struct{}

func (MockDecider) GetAction(_ context.Context, _ *battle.Snapshot, choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	pick := choices[0]
	for _, ch := range choices {
		if strings.HasPrefix(ch, "move ") {
			pick = ch
			break
		}
	}
	return pick + "\nreasoning: deterministic mock decision"
}
