// Package storage 以 SQLite 保存使用者的自訂食品
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"nutrient-resolver/internal/core/catalog"
	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/pkg/common"
)

// SQLiteStore 自訂食品儲存，實作 catalog.CustomItemStore
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 開啟資料庫並建立資料表。dsn 為檔案路徑或 ":memory:"。
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 單一連線，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	common.LogInfo("自訂食品資料庫已開啟", zap.String("dsn", dsn))
	return s, nil
}

// Close 關閉資料庫
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping 檢查資料庫連線
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS custom_items (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        category TEXT NOT NULL,
        item_type TEXT NOT NULL,
        hidden INTEGER NOT NULL DEFAULT 0,
        record TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_custom_items_user ON custom_items(user_id, created_at);
    `
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ListCustomItems 依建立順序回傳使用者的自訂食品（含隱藏項目）
func (s *SQLiteStore) ListCustomItems(ctx context.Context, userID string) ([]catalog.CustomItem, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, name, category, item_type, hidden, record, created_at
        FROM custom_items
        WHERE user_id = ?
        ORDER BY created_at, rowid
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query custom items: %w", err)
	}
	defer rows.Close()

	var items []catalog.CustomItem
	for rows.Next() {
		var (
			it       catalog.CustomItem
			itemType string
			record   string
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.Name, &it.Category, &itemType, &it.Hidden, &record, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan custom item: %w", err)
		}
		it.ItemType = nutrient.ItemType(itemType)
		if err := common.ParseJSON(record, &it.Record); err != nil {
			common.LogWarn("自訂食品紀錄無法解析，略過", zap.String("id", it.ID), zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read custom items: %w", err)
	}
	return items, nil
}

// SaveCustomItem 新增或覆寫自訂食品
func (s *SQLiteStore) SaveCustomItem(ctx context.Context, item catalog.CustomItem) error {
	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	record, err := common.ToJSON(item.Record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO custom_items (id, user_id, name, category, item_type, hidden, record, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            category = excluded.category,
            item_type = excluded.item_type,
            hidden = excluded.hidden,
            record = excluded.record
    `, item.ID, item.UserID, item.Name, item.Category, string(item.ItemType), item.Hidden, record, item.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save custom item: %w", err)
	}
	return nil
}

// SetHidden 切換自訂食品的隱藏狀態
func (s *SQLiteStore) SetHidden(ctx context.Context, userID, id string, hidden bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE custom_items SET hidden = ? WHERE id = ? AND user_id = ?`, hidden, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update custom item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
