// Package meal 餐點辨識與工作階段編輯的 HTTP 處理器
package meal

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/recognition"
	"nutrient-resolver/internal/core/resolution"
	"nutrient-resolver/internal/pkg/common"
)

// UserHeader 使用者識別，用於讀寫自訂食品
const UserHeader = "X-User-ID"

// RecognizeRequest 圖片辨識請求
type RecognizeRequest struct {
	Image           string `json:"image" binding:"required"`
	DescriptionHint string `json:"description_hint,omitempty"`
}

// CreateSessionRequest 由模型輸出建立工作階段。
// content 為模型原始文字；未提供時以 foods 等欄位組成。
type CreateSessionRequest struct {
	Content        string  `json:"content"`
	HasPackageInfo bool    `json:"hasPackageInfo"`
	PackageWeight  float64 `json:"packageWeight"`
	Foods          []any   `json:"foods"`
}

// AmountRequest 份量修改
type AmountRequest struct {
	Amount *float64 `json:"amount" binding:"required"`
}

// SelectRequest 候選選擇
type SelectRequest struct {
	Source string `json:"source" binding:"required"`
	Index  *int   `json:"index" binding:"required"`
}

// HiddenRequest 自訂食品的顯示狀態
type HiddenRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

// Handler 餐點 API
type Handler struct {
	recognizer *recognition.Service
	sessions   *resolution.Service
}

// NewHandler recognizer 為 nil 時辨識端點回傳 503
func NewHandler(recognizer *recognition.Service, sessions *resolution.Service) *Handler {
	return &Handler{recognizer: recognizer, sessions: sessions}
}

// Register 註冊路由
func (h *Handler) Register(g *gin.RouterGroup) {
	m := g.Group("/meal")
	m.POST("/recognize", h.Recognize)
	m.POST("/sessions", h.CreateSession)
	m.GET("/sessions/:id", h.GetSession)
	m.GET("/sessions/:id/queue", h.QueueStatus)
	m.DELETE("/sessions/:id", h.CloseSession)
	m.PUT("/sessions/:id/items/:itemId/amount", h.SetAmount)
	m.POST("/sessions/:id/items/:itemId/resolve", h.Resolve)
	m.POST("/sessions/:id/items/:itemId/select", h.Select)
	m.POST("/sessions/:id/commit", h.Commit)

	g.GET("/catalog/search", h.SearchCatalog)
	g.GET("/custom-items", h.ListCustomItems)
	g.PUT("/custom-items/:id/hidden", h.SetCustomItemHidden)
}

// Recognize 辨識照片並建立工作階段
func (h *Handler) Recognize(c *gin.Context) {
	if h.recognizer == nil {
		common.WriteError(c, common.ErrServiceUnavail)
		return
	}

	var req RecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.WithCause(err))
		return
	}

	common.LogInfo("開始處理餐點辨識請求",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("image_length", len(req.Image)),
	)

	res, err := h.recognizer.Recognize(c.Request.Context(), recognition.Request{
		ImageData: req.Image,
		Hint:      req.DescriptionHint,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	h.respondSession(c, res)
}

// CreateSession 由既有的模型輸出建立工作階段
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.WithCause(err))
		return
	}

	content := req.Content
	if strings.TrimSpace(content) == "" {
		if req.Foods == nil {
			common.WriteError(c, mapError(common.NewValidationError("content or foods is required")))
			return
		}
		encoded, err := common.ToJSON(map[string]any{
			"hasPackageInfo": req.HasPackageInfo,
			"packageWeight":  req.PackageWeight,
			"foods":          req.Foods,
		})
		if err != nil {
			common.WriteError(c, common.ErrInvalidRequest.WithCause(err))
			return
		}
		content = encoded
	}

	res, err := recognition.Parse(content)
	if err != nil {
		common.WriteError(c, common.ErrMalformedAI.WithCause(err))
		return
	}
	h.respondSession(c, res)
}

func (h *Handler) respondSession(c *gin.Context, res *recognition.Result) {
	snap, err := h.sessions.CreateSession(c.Request.Context(), c.GetHeader(UserHeader), res)
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// GetSession 工作階段快照
func (h *Handler) GetSession(c *gin.Context) {
	snap, err := h.sessions.Session(c.Param("id"))
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// QueueStatus 解析佇列狀態
func (h *Handler) QueueStatus(c *gin.Context) {
	st, err := h.sessions.QueueStatus(c.Param("id"))
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, st)
}

// CloseSession 關閉工作階段
func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.sessions.CloseSession(c.Param("id")); err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// SetAmount 修改份量
func (h *Handler) SetAmount(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.WithCause(err))
		return
	}
	item, err := h.sessions.SetAmount(c.Param("id"), c.Param("itemId"), *req.Amount)
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, item)
}

// Resolve 手動查詢品項
func (h *Handler) Resolve(c *gin.Context) {
	item, err := h.sessions.Resolve(c.Param("id"), c.Param("itemId"))
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusAccepted, item)
}

// Select 選擇候選
func (h *Handler) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.WithCause(err))
		return
	}
	item, err := h.sessions.Select(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.Source, *req.Index)
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, item)
}

// Commit 儲存解析結果為自訂食品並關閉工作階段
func (h *Handler) Commit(c *gin.Context) {
	res, err := h.sessions.Commit(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// SearchCatalog 手動選擇用的資料庫搜尋
func (h *Handler) SearchCatalog(c *gin.Context) {
	out, err := h.sessions.SearchCatalog(c.Request.Context(), c.GetHeader(UserHeader), c.Query("q"))
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": out})
}

// ListCustomItems 使用者的自訂食品（含已隱藏）
func (h *Handler) ListCustomItems(c *gin.Context) {
	items, err := h.sessions.CustomItems(c.Request.Context(), c.GetHeader(UserHeader))
	if err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// SetCustomItemHidden 隱藏或恢復自訂食品
func (h *Handler) SetCustomItemHidden(c *gin.Context) {
	var req HiddenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.WithCause(err))
		return
	}
	if err := h.sessions.SetCustomItemHidden(c.Request.Context(), c.GetHeader(UserHeader), c.Param("id"), *req.Hidden); err != nil {
		common.WriteError(c, mapError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// mapError 將領域錯誤轉為 API 錯誤
func mapError(err error) error {
	var ce *common.CustomError
	switch {
	case errors.As(err, &ce):
		return err
	case errors.Is(err, resolution.ErrSessionNotFound), errors.Is(err, resolution.ErrSessionClosed):
		return common.ErrSessionNotFound.WithCause(err)
	case errors.Is(err, resolution.ErrItemNotFound):
		return common.ErrItemNotFound.WithCause(err)
	case errors.Is(err, resolution.ErrCandidateNotFound):
		return common.ErrCandidateMissing.WithCause(err)
	case errors.Is(err, resolution.ErrItemBusy), errors.Is(err, resolution.ErrNotRetriable):
		return common.ErrConflict.WithCause(err)
	case errors.Is(err, resolution.ErrUnknownSource):
		return common.ErrInvalidRequest.WithCause(err)
	case errors.Is(err, nutrient.ErrInvalidAmount):
		return common.ErrInvalidAmount.WithCause(err)
	case common.IsValidationError(err):
		return common.ErrInvalidRequest.WithCause(err)
	case errors.Is(err, resolution.ErrCustomItemsDisabled):
		return common.ErrServiceUnavail.WithCause(err)
	case errors.Is(err, resolution.ErrLookupFailed):
		return common.ErrAIServiceError.WithCause(err)
	default:
		return common.ErrInternalError.WithCause(err)
	}
}
