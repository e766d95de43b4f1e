package health

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"nutrient-resolver/internal/pkg/common"
)

var errCatalogEmpty = errors.New("nutrient catalog is empty")

// Pinger 可檢查連線的依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status 健康檢查需要的執行狀態
type Status struct {
	Version        string
	CatalogEntries int
	ActiveSessions func() int
	Store          Pinger
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status         string                 `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	Version        string                 `json:"version"`
	CatalogEntries int                    `json:"catalog_entries"`
	ActiveSessions int                    `json:"active_sessions"`
	Runtime        map[string]interface{} `json:"runtime"`
}

// Handler 健康檢查處理器
type Handler struct {
	status Status
}

// NewHandler 建立處理器
func NewHandler(status Status) *Handler {
	return &Handler{status: status}
}

// HealthCheck 回傳版本、資料庫規模與執行期資訊
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	sessions := 0
	if h.status.ActiveSessions != nil {
		sessions = h.status.ActiveSessions()
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		Timestamp:      time.Now(),
		Version:        h.status.Version,
		CatalogEntries: h.status.CatalogEntries,
		ActiveSessions: sessions,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":  m.Alloc,
				"sys":    m.Sys,
				"num_gc": m.NumGC,
			},
		},
	})
}

// ReadinessCheck 資料庫已載入且自訂食品儲存可連線時才就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.status.CatalogEntries == 0 {
		common.WriteError(c, common.ErrServiceUnavail.WithCause(errCatalogEmpty))
		return
	}
	if h.status.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.status.Store.Ping(ctx); err != nil {
			common.WriteError(c, common.ErrServiceUnavail.WithCause(err))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// LivenessCheck 存活檢查
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
