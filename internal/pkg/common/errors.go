package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"` // 僅在非 release 模式顯示
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WithCause 以預定義錯誤為模板附加原始錯誤
func (e *CustomError) WithCause(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// ValidationError 表示使用者輸入錯誤，必須在呼叫外部服務前被拒絕
type ValidationError struct {
	message string
	err     error
}

func (e *ValidationError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// WrapValidationError 將領域錯誤標記為驗證錯誤，errors.Is 仍可比對原錯誤
func WrapValidationError(err error, message string) error {
	return &ValidationError{
		message: message,
		err:     err,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeServiceUnavail   = "SERVICE_UNAVAILABLE"
	ErrCodeGatewayTimeout   = "GATEWAY_TIMEOUT"
	ErrCodeMalformedAI      = "MALFORMED_AI_RESPONSE"
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrCodeItemNotFound     = "ITEM_NOT_FOUND"
	ErrCodeInvalidAmount    = "INVALID_AMOUNT"
	ErrCodeInvalidImage     = "INVALID_IMAGE"
	ErrCodeCandidateMissing = "CANDIDATE_NOT_FOUND"
)

// 預定義錯誤
var (
	ErrInvalidRequest   = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrConflict         = NewError(ErrCodeConflict, "資源衝突", http.StatusConflict, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrInternalError    = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavail   = NewError(ErrCodeServiceUnavail, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout   = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)
	ErrAIServiceError   = NewError("AI_SERVICE_ERROR", "AI 服務錯誤", http.StatusBadGateway, nil)
	ErrMalformedAI      = NewError(ErrCodeMalformedAI, "AI 回應無法解析", http.StatusBadGateway, nil)
	ErrSessionNotFound  = NewError(ErrCodeSessionNotFound, "工作階段不存在或已結束", http.StatusNotFound, nil)
	ErrItemNotFound     = NewError(ErrCodeItemNotFound, "品項不存在", http.StatusNotFound, nil)
	ErrInvalidAmount    = NewError(ErrCodeInvalidAmount, "份量必須大於 0", http.StatusBadRequest, nil)
	ErrInvalidImage     = NewError(ErrCodeInvalidImage, "無效的圖片", http.StatusBadRequest, nil)
	ErrCandidateMissing = NewError(ErrCodeCandidateMissing, "候選項目不存在", http.StatusNotFound, nil)
)
