package provider

import (
	"context"
)

// Request 發送到 AI 提供者的請求
type Request struct {
	Prompt      string
	ImageData   string // data URL；純文字請求時為空
	Model       string // 空字串時使用提供者預設模型
	MaxTokens   int
	Temperature float64
}

// Usage token 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 從 AI 提供者收到的回應
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Generate 生成 AI 回應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetModel 獲取目前使用的模型名稱
	GetModel() string
}

// Func 將函式轉為 Provider，供測試替身使用
type Func func(ctx context.Context, req *Request) (*Response, error)

// Generate 呼叫函式本身
func (f Func) Generate(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// GetModel 測試替身沒有模型名稱
func (f Func) GetModel() string { return "func" }
