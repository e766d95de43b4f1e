package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrient-resolver/internal/core/ai/cache"
	"nutrient-resolver/internal/core/ai/provider"
	"nutrient-resolver/internal/core/retry"
	"nutrient-resolver/internal/infrastructure/config"
)

type noSleep struct{ sleeps int }

func (c *noSleep) Now() time.Time { return time.Time{} }

func (c *noSleep) Sleep(ctx context.Context, _ time.Duration) error {
	c.sleeps++
	return ctx.Err()
}

func newService(p provider.Provider, store cache.Store) (*Service, *noSleep) {
	clock := &noSleep{}
	opts := OptionsFromConfig(config.Default())
	return NewService(p, retry.NewInvoker(clock, 0), store, opts), clock
}

func TestLookupUsesCache(t *testing.T) {
	calls := 0
	var prompt, model string
	p := provider.Func(func(_ context.Context, req *provider.Request) (*provider.Response, error) {
		calls++
		prompt, model = req.Prompt, req.Model
		return &provider.Response{Content: fullResponse}, nil
	})
	store := cache.NewManager(config.CacheConfig{TTL: time.Minute, CleanupInterval: time.Minute})
	svc, _ := newService(p, store)

	first, err := svc.Lookup(context.Background(), "アボカド", nil)
	require.NoError(t, err)
	second, err := svc.Lookup(context.Background(), "あぼかど", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Contains(t, prompt, "「アボカド」")
	assert.Contains(t, prompt, "最大5件")
	assert.Equal(t, config.Default().OpenRouter.TextModel, model)
	assert.Equal(t, first.BestMatch.Record.Calories, second.BestMatch.Record.Calories)
	require.NotNil(t, second.BestMatch.Record.Potassium)
	assert.Len(t, second.Candidates, 4)
}

func TestLookupFailureNotCached(t *testing.T) {
	calls := 0
	p := provider.Func(func(context.Context, *provider.Request) (*provider.Response, error) {
		calls++
		return &provider.Response{Content: `{"candidates": []}`}, nil
	})
	store := cache.NewManager(config.CacheConfig{TTL: time.Minute, CleanupInterval: time.Minute})
	svc, _ := newService(p, store)

	_, err := svc.Lookup(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoBestMatch)
	_, err = svc.Lookup(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoBestMatch)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, store.ItemCount())
}

func TestLookupExhaustsRetries(t *testing.T) {
	calls := 0
	p := provider.Func(func(context.Context, *provider.Request) (*provider.Response, error) {
		calls++
		return nil, errors.New("429 Too Many Requests")
	})
	svc, clock := newService(p, nil)

	var waits int
	_, err := svc.Lookup(context.Background(), "x", func(retry.Wait) { waits++ })
	require.Error(t, err)
	assert.Equal(t, 6, calls)
	assert.Equal(t, 5, clock.sleeps)
	assert.Equal(t, 5, waits)
}

func TestLookupCacheSeparatesCookingStates(t *testing.T) {
	calls := 0
	p := provider.Func(func(_ context.Context, req *provider.Request) (*provider.Response, error) {
		calls++
		kcal := 100
		if strings.Contains(req.Prompt, "揚げ") {
			kcal = 250
		}
		return &provider.Response{Content: fmt.Sprintf(
			`{"searchTerm": "鶏むね肉", "candidates": [], "bestMatch": {"name": "鶏むね肉", "matchScore": 90, "confidence": 0.8, "calories": %d, "protein": 20, "fat": 5, "carbs": 0}}`,
			kcal)}, nil
	})
	store := cache.NewManager(config.CacheConfig{TTL: time.Minute, CleanupInterval: time.Minute})
	svc, _ := newService(p, store)

	raw, err := svc.Lookup(context.Background(), "鶏むね肉（生）", nil)
	require.NoError(t, err)
	fried, err := svc.Lookup(context.Background(), "鶏むね肉(揚げ)", nil)
	require.NoError(t, err)
	again, err := svc.Lookup(context.Background(), "鶏むね肉(生)", nil)
	require.NoError(t, err)

	assert.Equal(t, 100.0, raw.BestMatch.Record.Calories)
	assert.Equal(t, 250.0, fried.BestMatch.Record.Calories)
	assert.Equal(t, 100.0, again.BestMatch.Record.Calories)
	assert.Equal(t, 2, calls)
}
