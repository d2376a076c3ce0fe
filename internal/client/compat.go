package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chat-bridge/internal/application/port/output"

	"github.com/sashabaranov/go-openai"
)

// CompatConfig points an OpenAI SDK client at the bridge's /v1 surface.
type CompatConfig struct {
	BaseURL string
	Model   string
	Logger  output.LoggerPort
}

// CompatClient asks through /v1/chat/completions, the way any OpenAI SDK user
// would.
type CompatClient struct {
	client *openai.Client
	model  string
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var size int
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(body))
		size = len(body)
	}
	t.logger.Debug("HTTP Request", "method", req.Method, "url", req.URL.String(), "bytes", size)

	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		t.logger.Debug("HTTP Response", "status", resp.Status, "statusCode", resp.StatusCode)
	}
	return resp, err
}

func NewCompatClient(cfg CompatConfig) *CompatClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	config := openai.DefaultConfig("unused")
	config.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"

	if cfg.Logger != nil {
		config.HTTPClient = &http.Client{
			Transport: &loggingTransport{base: http.DefaultTransport, logger: cfg.Logger},
		}
	}

	model := cfg.Model
	if model == "" {
		model = "chat-bridge"
	}
	return &CompatClient{client: openai.NewClientWithConfig(config), model: model}
}

func (c *CompatClient) Ask(ctx context.Context, query string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})
}

// AskWithImage sends image as an image_url part. The bridge only accepts
// data URIs there.
func (c *CompatClient) AskWithImage(ctx context.Context, query, image string) (string, error) {
	if !strings.HasPrefix(image, "data:") {
		image = "data:image/png;base64," + image
	}
	return c.complete(ctx, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: query},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: image}},
		},
	})
}

func (c *CompatClient) complete(ctx context.Context, msg openai.ChatCompletionMessage) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
