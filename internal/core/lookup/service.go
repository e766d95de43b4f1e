// Package lookup 以文字模型查詢資料庫沒有的食品營養素。
package lookup

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"nutrient-resolver/internal/core/ai/cache"
	"nutrient-resolver/internal/core/ai/provider"
	"nutrient-resolver/internal/core/metrics"
	"nutrient-resolver/internal/core/retry"
	"nutrient-resolver/internal/core/textnorm"
	"nutrient-resolver/internal/infrastructure/config"
	"nutrient-resolver/internal/pkg/common"
)

// Options 呼叫設定
type Options struct {
	Model          string
	MaxTokens      int
	MaxRetries     int
	Timeout        time.Duration
	CandidateLimit int
}

// OptionsFromConfig 預設 5 次重試、30 秒逾時、候選 5 筆
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:          cfg.OpenRouter.TextModel,
		MaxTokens:      cfg.OpenRouter.MaxTokens,
		MaxRetries:     cfg.Resolution.LookupMaxRetries,
		Timeout:        cfg.Resolution.LookupTimeout,
		CandidateLimit: cfg.Resolution.ExternalCandidateLimit,
	}
}

// Service 營養素查詢服務
type Service struct {
	provider provider.Provider
	invoker  *retry.Invoker
	cache    cache.Store
	opts     Options
}

// NewService 建立查詢服務；store 為 nil 時不快取
func NewService(p provider.Provider, inv *retry.Invoker, store cache.Store, opts Options) *Service {
	return &Service{provider: p, invoker: inv, cache: store, opts: opts}
}

// Lookup 查詢食品名稱。只有成功（含 bestMatch）的結果會被快取。
// 快取鍵保留調理狀態等限定詞，不同限定詞各自查詢。
func (s *Service) Lookup(ctx context.Context, name string, onWait func(retry.Wait)) (*Result, error) {
	key := cache.Key("lookup", textnorm.Fold(name))
	if res, ok := s.cached(ctx, key); ok {
		common.LogCacheHit("lookup", name)
		metrics.LookupsTotal.WithLabelValues("cache_hit").Inc()
		return res, nil
	}
	if s.cache != nil {
		common.LogCacheMiss("lookup", name)
	}

	req := &provider.Request{
		Prompt:    BuildPrompt(name, s.opts.CandidateLimit),
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
	}
	resp, err := retry.Invoke(ctx, s.invoker, s.provider.Generate, req, retry.Options{
		Name:       "lookup",
		MaxRetries: s.opts.MaxRetries,
		Timeout:    s.opts.Timeout,
		OnWait:     onWait,
	})
	if err != nil {
		metrics.LookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	res, err := Parse(resp.Content, name, s.opts.CandidateLimit)
	if err != nil {
		metrics.LookupsTotal.WithLabelValues("malformed").Inc()
		return res, err
	}
	metrics.LookupsTotal.WithLabelValues("ok").Inc()

	if s.cache != nil {
		if data, err := common.ToJSON(res); err == nil {
			if err := s.cache.Set(ctx, key, []byte(data)); err != nil {
				common.LogWarn("查詢結果快取寫入失敗", zap.Error(err))
			}
		}
	}
	return res, nil
}

func (s *Service) cached(ctx context.Context, key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		common.LogWarn("查詢結果快取讀取失敗", zap.Error(err))
	}
	if !ok {
		return nil, false
	}
	var res Result
	if err := common.ParseJSONBytes(data, &res); err != nil {
		return nil, false
	}
	return &res, true
}

// ErrUnavailable 未設定外部模型
var ErrUnavailable = errors.New("external lookup is not configured")

// Unavailable 未設定 OpenRouter 時使用的查詢器，所有查詢都失敗，品項保留資料庫候選供手動選擇
type Unavailable struct{}

// Lookup 一律回傳 ErrUnavailable
func (Unavailable) Lookup(context.Context, string, func(retry.Wait)) (*Result, error) {
	return nil, ErrUnavailable
}
