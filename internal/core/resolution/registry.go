package resolution

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"nutrient-resolver/internal/core/metrics"
	"nutrient-resolver/internal/pkg/common"
)

// Registry 保存進行中的工作階段，逾時或刪除時關閉工作階段
type Registry struct {
	sessions *gocache.Cache
}

// NewRegistry ttl 為閒置存活時間；cleanupInterval <= 0 時不啟動背景清理
func NewRegistry(ttl, cleanupInterval time.Duration) *Registry {
	c := gocache.New(ttl, cleanupInterval)
	c.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
			metrics.ActiveSessions.Dec()
			common.LogInfo("工作階段已關閉", zap.String("session_id", id))
		}
	})
	return &Registry{sessions: c}
}

// Put 加入工作階段
func (r *Registry) Put(s *Session) {
	r.sessions.SetDefault(s.ID, s)
	metrics.ActiveSessions.Inc()
}

// Get 讀取工作階段並延長存活時間。
// 以 Replace 延長，同時被刪除的工作階段不會被放回。
func (r *Registry) Get(id string) (*Session, bool) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	if s.Closed() {
		return nil, false
	}
	if err := r.sessions.Replace(id, s, gocache.DefaultExpiration); err != nil {
		return nil, false
	}
	return s, true
}

// Delete 移除並關閉工作階段
func (r *Registry) Delete(id string) bool {
	if _, ok := r.sessions.Get(id); !ok {
		return false
	}
	r.sessions.Delete(id)
	return true
}

// Len 工作階段數量
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// CloseAll 關閉所有工作階段
func (r *Registry) CloseAll() {
	for id := range r.sessions.Items() {
		r.sessions.Delete(id)
	}
}
