package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrient-resolver/internal/core/ai/provider"
	"nutrient-resolver/internal/core/retry"
	"nutrient-resolver/internal/infrastructure/config"
)

const testBaseURL = "https://openrouter.test/api/v1"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(config.OpenRouterConfig{
		APIKey:    "sk-test",
		BaseURL:   testBaseURL,
		Model:     "vision-model",
		MaxTokens: 500,
	})
	httpmock.ActivateNonDefault(c.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestGenerateSuccess(t *testing.T) {
	c := newTestClient(t)

	var got chatRequest
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"model": "vision-model",
				"choices": []map[string]any{
					{"message": map[string]any{"content": `{"foods":[]}`}},
				},
				"usage": map[string]any{"total_tokens": 42},
			})
		})

	resp, err := c.Generate(context.Background(), &provider.Request{
		Prompt:    "  analyze  ",
		ImageData: "aGVsbG8=",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"foods":[]}`, resp.Content)
	assert.Equal(t, 42, resp.Usage.TotalTokens)

	assert.Equal(t, "vision-model", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "analyze", got.Messages[0].Content[0].Text)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", got.Messages[0].Content[1].ImageURL.URL)
}

func TestGenerateModelOverride(t *testing.T) {
	c := newTestClient(t)

	var got chatRequest
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
			})
		})

	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "p", Model: "text-model"})
	require.NoError(t, err)
	assert.Equal(t, "text-model", got.Model)
	require.Len(t, got.Messages[0].Content, 1)
}

func TestGenerateRateLimited(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		httpmock.NewJsonResponderOrPanic(http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"message": "Rate limit exceeded"},
		}))

	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "p"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode())
	assert.Equal(t, "Rate limit exceeded", apiErr.Message)
	assert.Equal(t, retry.ClassRateLimit, retry.Classify(err))
}

func TestGenerateServerErrorIsFatal(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusUnauthorized, "invalid key"))

	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, retry.ClassFatal, retry.Classify(err))
}

func TestGenerateNoChoices(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"choices": []any{}}))

	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "p"})
	assert.ErrorContains(t, err, "no choices")
}
