// Package app 依設定組裝服務元件，供 API 伺服器與 CLI 共用
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nutrient-resolver/internal/core/ai/cache"
	"nutrient-resolver/internal/core/ai/image"
	"nutrient-resolver/internal/core/ai/openrouter"
	"nutrient-resolver/internal/core/catalog"
	"nutrient-resolver/internal/core/lookup"
	"nutrient-resolver/internal/core/match"
	"nutrient-resolver/internal/core/recognition"
	"nutrient-resolver/internal/core/resolution"
	"nutrient-resolver/internal/core/retry"
	"nutrient-resolver/internal/core/synonym"
	"nutrient-resolver/internal/infrastructure/config"
	"nutrient-resolver/internal/infrastructure/storage"
	"nutrient-resolver/internal/pkg/common"
)

// App 組裝完成的元件
type App struct {
	Catalog    *catalog.Catalog
	Matcher    *match.Matcher
	Store      *storage.SQLiteStore
	Lookup     resolution.Lookuper
	Recognizer *recognition.Service
	Sessions   *resolution.Service

	closers []func() error
}

// Options 組裝選項
type Options struct {
	// SkipStore 不開啟自訂食品資料庫（CLI 離線模式）
	SkipStore bool
	// SkipLookup 不呼叫外部模型，未知品項保持待查狀態
	SkipLookup bool
}

// New 依設定建立所有元件
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	c, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	a := &App{
		Catalog: c,
		Matcher: match.NewMatcher(c, synonym.NewExpander(synonym.DefaultTable()), match.NewScorer(match.ScoresFromConfig(cfg.Matching))),
	}

	var custom catalog.CustomItemStore
	if !opts.SkipStore && cfg.CustomItems.DSN != "" {
		store, err := storage.NewSQLiteStore(cfg.CustomItems.DSN)
		if err != nil {
			return nil, err
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
		custom = store
	}

	a.Lookup = lookup.Unavailable{}
	if cfg.OpenRouter.Enabled && !opts.SkipLookup {
		client := openrouter.NewClient(cfg.OpenRouter)
		inv := retry.NewInvoker(retry.RealClock(), cfg.Resolution.BackoffBase)

		store, closeCache := cache.FromConfig(ctx, cfg)
		a.closers = append(a.closers, closeCache)

		a.Lookup = lookup.NewService(client, inv, store, lookup.OptionsFromConfig(cfg))
		a.Recognizer = recognition.NewService(client, inv, image.NewProcessor(cfg.Image.MaxSizeBytes), recognition.OptionsFromConfig(cfg))
	} else {
		common.LogWarn("OpenRouter 未啟用，外部辨識與查詢停用",
			zap.Bool("openrouter_enabled", cfg.OpenRouter.Enabled),
			zap.Bool("skip_lookup", opts.SkipLookup),
		)
	}

	a.Sessions = resolution.NewService(c, a.Matcher, a.Lookup, custom, retry.RealClock(), resolution.OptionsFromConfig(cfg))

	common.LogInfo("服務元件已建立",
		zap.Int("catalog_entries", c.Len()),
		zap.Bool("custom_items", custom != nil),
		zap.Bool("recognition", a.Recognizer != nil),
	)
	return a, nil
}

// Close 關閉所有工作階段與外部連線
func (a *App) Close() error {
	a.Sessions.Shutdown()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}
