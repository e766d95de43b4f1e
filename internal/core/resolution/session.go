package resolution

import (
	"sync"
	"time"

	"nutrient-resolver/internal/core/catalog"
	"nutrient-resolver/internal/core/nutrient"
)

// Session 一次編輯工作階段的工作清單。
// 每次修改都複製整份清單後替換，讀取端拿到的快照不會被之後的修改影響。
type Session struct {
	ID             string
	UserID         string
	HasPackageInfo bool
	PackageWeight  float64
	CreatedAt      time.Time

	custom []catalog.CustomItem

	mu     sync.Mutex
	items  []nutrient.FoodItem
	closed bool

	queue *Queue
}

func newSession(id, userID string, items []nutrient.FoodItem, custom []catalog.CustomItem, now time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		custom:    custom,
		items:     items,
	}
}

// Items 目前清單的快照
func (s *Session) Items() []nutrient.FoodItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]nutrient.FoodItem, len(s.items))
	copy(out, s.items)
	return out
}

// Item 依 ID 讀取品項
func (s *Session) Item(id string) (nutrient.FoodItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nutrient.FoodItem{}, ErrSessionClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return nutrient.FoodItem{}, ErrItemNotFound
	}
	return s.items[i], nil
}

// Update 以 fn 產生新的品項並替換整份清單。fn 回傳錯誤時清單不變。
// fn 在鎖內執行，不可呼叫外部服務。
func (s *Session) Update(id string, fn func(nutrient.FoodItem) (nutrient.FoodItem, error)) (nutrient.FoodItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nutrient.FoodItem{}, ErrSessionClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return nutrient.FoodItem{}, ErrItemNotFound
	}

	updated, err := fn(s.items[i])
	if err != nil {
		return s.items[i], err
	}
	updated.ID = id

	next := make([]nutrient.FoodItem, len(s.items))
	copy(next, s.items)
	next[i] = updated
	s.items = next
	return updated, nil
}

// Custom 建立工作階段時讀取的自訂食品
func (s *Session) Custom() []catalog.CustomItem {
	return s.custom
}

// Closed 是否已關閉
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close 關閉工作階段並停止佇列。已排程的查詢結果會被丟棄。
func (s *Session) Close() {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if already {
		return
	}
	if s.queue != nil {
		s.queue.Stop()
	}
}

func (s *Session) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot 對外回傳的工作階段狀態
type Snapshot struct {
	ID             string              `json:"id"`
	UserID         string              `json:"userId,omitempty"`
	HasPackageInfo bool                `json:"hasPackageInfo"`
	PackageWeight  float64             `json:"packageWeight,omitempty"`
	Items          []nutrient.FoodItem `json:"items"`
	Totals         Totals              `json:"totals"`
	Pending        int                 `json:"pending"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// Totals 全部品項的熱量與 PFC 合計
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Snapshot 建立目前狀態的快照
func (s *Session) Snapshot() Snapshot {
	items := s.Items()
	snap := Snapshot{
		ID:             s.ID,
		UserID:         s.UserID,
		HasPackageInfo: s.HasPackageInfo,
		PackageWeight:  s.PackageWeight,
		Items:          items,
		CreatedAt:      s.CreatedAt,
	}
	var t nutrient.Values
	for _, it := range items {
		t.Calories += it.Nutrients.Calories
		t.Protein += it.Nutrients.Protein
		t.Fat += it.Nutrients.Fat
		t.Carbs += it.Nutrients.Carbs
		if it.State.Retriable() || it.State == nutrient.StateFetching {
			snap.Pending++
		}
	}
	r := t.Scale(1)
	snap.Totals = Totals{Calories: r.Calories, Protein: r.Protein, Fat: r.Fat, Carbs: r.Carbs}
	return snap
}
