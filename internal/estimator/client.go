// internal/estimator/client.go
package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultEndpoint = "https://models.github.ai/inference/chat/completions"
	DefaultModel    = "openai/gpt-4o-mini"

	// TokenPrefix is the prefix of GitHub fine-grained personal access tokens.
	TokenPrefix = "github_pat_"

	requestTimeout = 30 * time.Second
	maxTokens      = 20
)

// AvailableModels are the GitHub Models ids offered in settings. Any other id
// is passed through unchanged.
var AvailableModels = []string{
	"openai/gpt-4o-mini",
	"openai/gpt-4.1",
	"gpt-4o",
}

const systemPrompt = "You are a calorie estimation bot. Return ONLY numbers, nothing else."

const estimatePrompt = `Food: %s

Return ONLY two numbers separated by a space: calories protein
No words, no units, no explanation, no punctuation.
Just two integers.

Example responses:
450 25
120 5
850 40`

const pingPrompt = "Return the number 123 only. No words, no punctuation."

type Estimate struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
}

type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
}

type Option func(*clientOptions)

type clientOptions struct {
	endpoint string
	base     *http.Client
}

// WithEndpoint overrides the chat completions URL.
func WithEndpoint(url string) Option {
	return func(o *clientOptions) {
		if strings.TrimSpace(url) != "" {
			o.endpoint = strings.TrimSpace(url)
		}
	}
}

// WithHTTPClient sets the client whose transport carries the requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.base = c }
}

func NewClient(apiKey, model string, opts ...Option) *Client {
	o := clientOptions{endpoint: DefaultEndpoint}
	for _, opt := range opts {
		opt(&o)
	}

	var base http.RoundTripper
	if o.base != nil {
		base = o.base.Transport
	}

	apiKey = strings.TrimSpace(apiKey)
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"}),
				Base:   base,
			},
			Timeout: requestTimeout,
		},
		endpoint: o.endpoint,
		apiKey:   apiKey,
		model:    model,
	}
}

func (c *Client) Model() string { return c.model }

// IsValidAPIKey reports whether key looks like a GitHub personal access token.
func IsValidAPIKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && strings.HasPrefix(key, TokenPrefix)
}

// Estimate asks the model for the calories and grams of protein in food.
func (c *Client) Estimate(ctx context.Context, food string) (Estimate, error) {
	food = strings.TrimSpace(food)
	if food == "" {
		return Estimate{}, fmt.Errorf("%w: empty food description", ErrNotConfigured)
	}
	if !IsValidAPIKey(c.apiKey) {
		return Estimate{}, fmt.Errorf("%w: missing or malformed GitHub token", ErrNotConfigured)
	}

	log.Printf("estimator: estimating %q with model %s", food, c.model)

	content, err := c.complete(ctx, fmt.Sprintf(estimatePrompt, food))
	if err != nil {
		return Estimate{}, err
	}
	log.Printf("estimator: raw response %q", content)

	calories, protein, err := ParseEstimate(content)
	if err != nil {
		return Estimate{}, err
	}
	if err := Validate(calories, protein); err != nil {
		log.Printf("estimator: rejected %d kcal, %dg protein for %q", calories, protein, food)
		return Estimate{}, err
	}

	return Estimate{Calories: calories, Protein: protein}, nil
}

// Ping checks the token and endpoint with a prompt whose only valid answer
// is 123.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	if !IsValidAPIKey(c.apiKey) {
		return false, fmt.Errorf("%w: missing or malformed GitHub token", ErrNotConfigured)
	}
	content, err := c.complete(ctx, pingPrompt)
	if err != nil {
		return false, err
	}
	return digitsOnly(content) == "123", nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends a single chat completion and returns the trimmed content of
// the first choice.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		TopP:        1,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create HTTP request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: HTTP request failed: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %w", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("estimator: HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
		return "", fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrEmptyResponse, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil || parsed.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: no content in first choice", ErrEmptyResponse)
	}
	content := strings.TrimSpace(*parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: blank content", ErrEmptyResponse)
	}
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
