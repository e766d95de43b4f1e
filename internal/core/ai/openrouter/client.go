package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"nutrient-resolver/internal/core/ai/provider"
	"nutrient-resolver/internal/core/metrics"
	"nutrient-resolver/internal/infrastructure/config"
	"nutrient-resolver/internal/pkg/common"
)

// APIError OpenRouter 回傳非 200 狀態
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter returned %d: %s", e.Status, e.Message)
}

// StatusCode HTTP 狀態碼，429 會被重試器視為限流
func (e *APIError) StatusCode() int { return e.Status }

// Client OpenRouter API 客戶端
type Client struct {
	cfg    config.OpenRouterConfig
	client *resty.Client
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient 創建 OpenRouter 客戶端
func NewClient(cfg config.OpenRouterConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("HTTP-Referer", "https://nutrient-resolver.local").
		SetHeader("X-Title", "Nutrient Resolver")

	return &Client{cfg: cfg, client: client}
}

// HTTPClient 底層 http.Client，測試時掛上 httpmock
func (c *Client) HTTPClient() *http.Client {
	return c.client.GetClient()
}

// GetModel 預設模型
func (c *Client) GetModel() string {
	return c.cfg.Model
}

// Generate 送出 chat completion 請求；逾時由呼叫端的 context 控制
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	parts := []contentPart{{Type: "text", Text: strings.TrimSpace(req.Prompt)}}
	kind := "text"
	if req.ImageData != "" {
		url := req.ImageData
		if !strings.HasPrefix(url, "data:image/") {
			url = "data:image/jpeg;base64," + url
		}
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
		kind = "image"
		common.LogDebug("OpenRouter image_url", zap.String("image_url_start", preview(url, 40)))
	}

	body := chatRequest{
		Model:       model,
		Messages:    []message{{Role: "user", Content: parts}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	start := time.Now()
	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	duration := time.Since(start)

	if err != nil {
		metrics.ExternalCallDuration.WithLabelValues(kind, "error").Observe(duration.Seconds())
		common.LogAICall(kind, duration, err)
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		msg := resp.String()
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		apiErr := &APIError{Status: resp.StatusCode(), Message: preview(msg, 200)}
		metrics.ExternalCallDuration.WithLabelValues(kind, "error").Observe(duration.Seconds())
		common.LogAICall(kind, duration, apiErr)
		return nil, apiErr
	}

	if len(out.Choices) == 0 {
		err := fmt.Errorf("no choices in OpenRouter response")
		common.LogAICall(kind, duration, err)
		return nil, err
	}

	metrics.ExternalCallDuration.WithLabelValues(kind, "ok").Observe(duration.Seconds())
	common.LogAICall(kind, duration, nil)

	return &provider.Response{
		Content: out.Choices[0].Message.Content,
		Model:   out.Model,
		Usage:   out.Usage,
	}, nil
}

// preview 截斷日誌內容，避免寫入整段 base64
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
