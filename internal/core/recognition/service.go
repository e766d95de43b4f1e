// Package recognition 呼叫視覺模型辨識餐點照片中的食材。
package recognition

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutrient-resolver/internal/core/ai/image"
	"nutrient-resolver/internal/core/ai/provider"
	"nutrient-resolver/internal/core/retry"
	"nutrient-resolver/internal/infrastructure/config"
	"nutrient-resolver/internal/pkg/common"
)

// ErrEmptyImage 未提供圖片，在呼叫外部服務前拒絕
var ErrEmptyImage = errors.New("image is required")

// Request 辨識請求
type Request struct {
	ImageData string
	Hint      string
	OnWait    func(retry.Wait)
}

// Options 呼叫設定
type Options struct {
	Model      string
	MaxTokens  int
	MaxRetries int
	Timeout    time.Duration
}

// OptionsFromConfig 預設 5 次重試、60 秒逾時
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:      cfg.OpenRouter.Model,
		MaxTokens:  cfg.OpenRouter.MaxTokens,
		MaxRetries: cfg.Resolution.RecognitionMaxRetries,
		Timeout:    cfg.Resolution.RecognitionTimeout,
	}
}

// Service 辨識服務
type Service struct {
	provider provider.Provider
	invoker  *retry.Invoker
	images   *image.Processor
	opts     Options
}

// NewService 建立辨識服務；images 為 nil 時不做圖片格式轉換
func NewService(p provider.Provider, inv *retry.Invoker, images *image.Processor, opts Options) *Service {
	return &Service{provider: p, invoker: inv, images: images, opts: opts}
}

// Recognize 驗證圖片、呼叫模型並解析結果
func (s *Service) Recognize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.ImageData) == "" {
		return nil, common.ErrInvalidImage.WithCause(ErrEmptyImage)
	}

	imageData := req.ImageData
	if s.images != nil {
		normalized, err := s.images.Normalize(imageData)
		if err != nil {
			return nil, err
		}
		imageData = normalized
	}

	aiReq := &provider.Request{
		Prompt:    BuildPrompt(req.Hint),
		ImageData: imageData,
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
	}

	start := time.Now()
	resp, err := retry.Invoke(ctx, s.invoker, s.provider.Generate, aiReq, retry.Options{
		Name:       "recognition",
		MaxRetries: s.opts.MaxRetries,
		Timeout:    s.opts.Timeout,
		OnWait:     req.OnWait,
	})
	if err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			return nil, common.ErrGatewayTimeout.WithCause(err)
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, common.ErrAIServiceError.WithCause(err)
	}

	result, err := Parse(resp.Content)
	if err != nil {
		common.LogError("辨識結果無法解析", zap.Error(err))
		return nil, common.ErrMalformedAI.WithCause(err)
	}

	common.LogInfo("食材辨識完成",
		zap.Int("foods", len(result.Foods)),
		zap.Bool("has_package_info", result.HasPackageInfo),
		zap.Duration("耗時", time.Since(start)),
	)
	return result, nil
}
