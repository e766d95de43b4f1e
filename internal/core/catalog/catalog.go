// Package catalog 提供唯讀的營養素資料庫與使用者自訂食品的型別。
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/textnorm"
	"nutrient-resolver/internal/pkg/common"
)

// CustomCategory 自訂食品的分類
const CustomCategory = "カスタム食品"

// Entry 資料庫中的一筆食品，以 (Category, Name) 為鍵
type Entry struct {
	Category string          `json:"category"`
	Name     string          `json:"name"`
	Record   nutrient.Record `json:"record"`
}

type entryKey struct {
	category string
	name     string
}

// Catalog 唯讀資料庫。建立後不會被修改，可在多個 goroutine 間共用。
type Catalog struct {
	entries []Entry
	index   map[entryKey]int
}

// New 由「分類 → 名稱 → 紀錄」建立資料庫，項目依分類與名稱排序以確保結果穩定
func New(data map[string]map[string]nutrient.Record) *Catalog {
	c := &Catalog{index: make(map[entryKey]int)}
	for category, items := range data {
		for name, rec := range items {
			c.entries = append(c.entries, Entry{
				Category: category,
				Name:     textnorm.Normalize(name),
				Record:   rec,
			})
		}
	}
	sort.Slice(c.entries, func(i, j int) bool {
		if c.entries[i].Category != c.entries[j].Category {
			return c.entries[i].Category < c.entries[j].Category
		}
		return c.entries[i].Name < c.entries[j].Name
	})
	for i, e := range c.entries {
		c.index[entryKey{e.Category, e.Name}] = i
	}
	return c
}

// Load 讀取 JSON 格式的資料庫檔案
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defer f.Close()

	var raw map[string]map[string]nutrient.Record
	if err := common.DecodeJSON(f, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return New(raw), nil
}

// Entries 所有項目，呼叫端不可修改
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Len 項目數
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Get 以分類與名稱取得項目
func (c *Catalog) Get(category, name string) (Entry, bool) {
	i, ok := c.index[entryKey{category, textnorm.Normalize(name)}]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// CustomItem 使用者自訂食品
type CustomItem struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	ItemType  nutrient.ItemType `json:"itemType"`
	Hidden    bool              `json:"hidden"`
	Record    nutrient.Record   `json:"record"`
	CreatedAt time.Time         `json:"createdAt"`
}

// CustomItemStore 自訂食品的讀寫介面
type CustomItemStore interface {
	ListCustomItems(ctx context.Context, userID string) ([]CustomItem, error)
	SaveCustomItem(ctx context.Context, item CustomItem) error
	// SetHidden 軟刪除或恢復；找不到時回傳 common.ErrNotFound
	SetHidden(ctx context.Context, userID, id string, hidden bool) error
}

// Visible 過濾掉已隱藏的自訂食品
func Visible(items []CustomItem) []CustomItem {
	out := make([]CustomItem, 0, len(items))
	for _, it := range items {
		if !it.Hidden {
			out = append(out, it)
		}
	}
	return out
}
