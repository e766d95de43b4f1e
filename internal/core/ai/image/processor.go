package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	_ "golang.org/x/image/webp" // 支援 WebP

	"nutrient-resolver/internal/pkg/common"
)

// ErrEmptyImage 未提供圖片
var ErrEmptyImage = errors.New("image data is empty")

// Processor 圖片處理器：驗證上傳圖片並統一轉為 JPEG data URL
type Processor struct {
	maxSizeBytes int64
}

// NewProcessor 創建圖片處理器
func NewProcessor(maxSizeBytes int64) *Processor {
	return &Processor{maxSizeBytes: maxSizeBytes}
}

// Normalize 接受 data URL 或純 base64，回傳 data:image/... 格式。
// JPEG 原樣保留，其他支援格式重新編碼為 JPEG。
func (p *Processor) Normalize(imageData string) (string, error) {
	imageData = strings.TrimSpace(imageData)
	if imageData == "" {
		return "", common.ErrInvalidImage.WithCause(ErrEmptyImage)
	}

	payload := imageData
	if strings.HasPrefix(imageData, "data:image/") {
		parts := strings.SplitN(imageData, ",", 2)
		if len(parts) != 2 || !strings.HasSuffix(parts[0], ";base64") {
			return "", common.ErrInvalidImage.WithCause(fmt.Errorf("invalid data URL header"))
		}
		payload = parts[1]
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", common.ErrInvalidImage.WithCause(fmt.Errorf("failed to decode base64 data: %w", err))
	}

	if p.maxSizeBytes > 0 && int64(len(decoded)) > p.maxSizeBytes {
		return "", common.ErrInvalidImage.WithCause(
			fmt.Errorf("image size exceeds maximum limit of %d bytes", p.maxSizeBytes))
	}

	img, format, err := image.Decode(bytes.NewReader(decoded))
	if err != nil {
		return "", common.ErrInvalidImage.WithCause(fmt.Errorf("failed to decode image: %w", err))
	}

	if !isSupportedFormat(format) {
		return "", common.ErrInvalidImage.WithCause(fmt.Errorf("unsupported image format: %s", format))
	}

	if format == "jpeg" {
		return "data:image/jpeg;base64," + payload, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode image as JPEG: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}
