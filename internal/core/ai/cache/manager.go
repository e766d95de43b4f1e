// Package cache 外部查詢結果快取：程序內 go-cache，選用 Redis 共用層。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"nutrient-resolver/internal/infrastructure/config"
	"nutrient-resolver/internal/pkg/common"
)

// Store 以字串鍵存放序列化結果
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key 生成快取鍵，kind 區分查詢種類
func Key(kind string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return kind + ":" + hex.EncodeToString(hash[:])
}

// Manager 程序內快取
type Manager struct {
	store *gocache.Cache
}

// NewManager 創建程序內快取
func NewManager(cfg config.CacheConfig) *Manager {
	m := &Manager{store: gocache.New(cfg.TTL, cfg.CleanupInterval)}
	common.LogInfo("快取管理員已初始化",
		zap.Duration("存活時間", cfg.TTL),
		zap.Duration("清理間隔", cfg.CleanupInterval),
	)
	return m
}

// Get 獲取快取值
func (m *Manager) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

// Set 設置快取值
func (m *Manager) Set(_ context.Context, key string, value []byte) error {
	m.store.Set(key, value, gocache.DefaultExpiration)
	return nil
}

// ItemCount 目前快取數量
func (m *Manager) ItemCount() int {
	return m.store.ItemCount()
}

// Flush 清空快取
func (m *Manager) Flush() {
	m.store.Flush()
}

// Tiered 依序查詢多層快取，命中時回填較前面的層
type Tiered struct {
	layers []Store
}

// NewTiered 建立多層快取；沒有任何層時等同停用
func NewTiered(layers ...Store) *Tiered {
	return &Tiered{layers: layers}
}

// Get 由前往後查詢
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var errs []error
	for i, layer := range t.layers {
		v, ok, err := layer.Get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		for _, earlier := range t.layers[:i] {
			_ = earlier.Set(ctx, key, v)
		}
		return v, true, nil
	}
	return nil, false, errors.Join(errs...)
}

// Set 寫入所有層
func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	var errs []error
	for _, layer := range t.layers {
		if err := layer.Set(ctx, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len 層數
func (t *Tiered) Len() int {
	return len(t.layers)
}

// FromConfig 依設定組裝快取層；Redis 無法連線時只記錄警告並退回程序內快取。
// 回傳的 close 函式需在關閉服務時呼叫。
func FromConfig(ctx context.Context, cfg *config.Config) (*Tiered, func() error) {
	var layers []Store
	closeFn := func() error { return nil }

	if cfg.Cache.Enabled {
		layers = append(layers, NewManager(cfg.Cache))
	}
	if cfg.Redis.Enabled {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		rs, err := NewRedisStore(pingCtx, cfg.Redis)
		cancel()
		if err != nil {
			common.LogWarn("Redis 快取無法使用，僅使用程序內快取", zap.Error(err))
		} else {
			layers = append(layers, rs)
			closeFn = rs.Close
		}
	}
	return NewTiered(layers...), closeFn
}
