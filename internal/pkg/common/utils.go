package common

import (
	"errors"
	"math"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteError 將錯誤轉為統一的 JSON 錯誤響應
func WriteError(c *gin.Context, err error) {
	var ce *CustomError
	if !errors.As(err, &ce) {
		ce = NewError(ErrCodeInternalError, ErrInternalError.Message, ErrInternalError.Status, err)
	}
	resp := ErrorResponse{Code: ce.Code, Message: ce.Message}
	if ce.Err != nil && gin.Mode() != gin.ReleaseMode {
		resp.Details = ce.Err.Error()
	}
	c.AbortWithStatusJSON(ce.Status, resp)
}

// Round 以指定小數位數四捨五入
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
