package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTransport speaks the plain HTTPS chat/completion API each platform
// exposes, grounded on internal/perception/client.go's hand-rolled HTTP
// client (no vendor SDK — §10 explains why google.golang.org/genai was
// not wired: it would bypass this uniform surface).
type HTTPTransport struct {
	Client  *http.Client
	APIKeys map[string]string // platform -> key
	BaseURL map[string]string // platform -> base URL override
}

// NewHTTPTransport builds a transport with a bounded-timeout client.
func NewHTTPTransport(apiKeys map[string]string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		Client:  &http.Client{Timeout: timeout},
		APIKeys: apiKeys,
		BaseURL: defaultBaseURLs(),
	}
}

func defaultBaseURLs() map[string]string {
	return map[string]string{
		"claude":     "https://api.anthropic.com/v1/messages",
		"openai":     "https://api.openai.com/v1/chat/completions",
		"gemini":     "https://generativelanguage.googleapis.com/v1beta/models",
		"xai":        "https://api.x.ai/v1/chat/completions",
		"openrouter": "https://openrouter.ai/api/v1/chat/completions",
	}
}

// Complete issues one chat/completion request and maps the response (or
// transport/status failure) onto the gateway's retriable/permanent error
// split.
func (t *HTTPTransport) Complete(ctx context.Context, kind EndpointKind, platform, model, prompt string) (string, int, int, error) {
	url, ok := t.BaseURL[platform]
	if !ok {
		return "", 0, 0, fmt.Errorf("provider: unknown platform %q", platform)
	}

	body, err := buildRequestBody(platform, kind, model, prompt)
	if err != nil {
		return "", 0, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	applyAuth(req, platform, t.APIKeys[platform])

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", 0, 0, &RetriableError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, 0, &RetriableError{Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", 0, 0, &RetriableError{Err: fmt.Errorf("provider: %s returned %d", platform, resp.StatusCode)}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", 0, 0, fmt.Errorf("provider: authentication failed for %s (%d)", platform, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return "", 0, 0, fmt.Errorf("provider: %s rejected request (%d): %s", platform, resp.StatusCode, string(data))
	}

	return parseResponseBody(platform, data)
}

func applyAuth(req *http.Request, platform, key string) {
	switch platform {
	case "claude":
		req.Header.Set("x-api-key", key)
		req.Header.Set("anthropic-version", "2023-06-01")
	default:
		req.Header.Set("Authorization", "Bearer "+key)
	}
}

func buildRequestBody(platform string, kind EndpointKind, model, prompt string) ([]byte, error) {
	switch kind {
	case EndpointChat:
		return json.Marshal(map[string]any{
			"model":    model,
			"messages": []map[string]string{{"role": "user", "content": prompt}},
		})
	case EndpointCompletion:
		return json.Marshal(map[string]any{
			"model":  model,
			"prompt": prompt,
		})
	default:
		return nil, ErrNonTextEndpoint
	}
}

// chatResponse is the minimal shape shared (loosely) across chat-style
// providers' JSON responses — enough to extract text and usage.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens      int `json:"input_tokens"`
		OutputTokens     int `json:"output_tokens"`
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func parseResponseBody(platform string, data []byte) (string, int, int, error) {
	var r chatResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return "", 0, 0, fmt.Errorf("provider: malformed %s response: %w", platform, err)
	}

	text := ""
	if len(r.Choices) > 0 {
		text = r.Choices[0].Message.Content
	} else if len(r.Content) > 0 {
		text = r.Content[0].Text
	}

	tokensIn := r.Usage.InputTokens + r.Usage.PromptTokens
	tokensOut := r.Usage.OutputTokens + r.Usage.CompletionTokens

	return text, tokensIn, tokensOut, nil
}
