// Package retry 以逾時與指數退避包裝外部呼叫。
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutrient-resolver/internal/core/metrics"
	"nutrient-resolver/internal/pkg/common"
)

// ErrTimeout 單次呼叫超過逾時時間
var ErrTimeout = errors.New("external call timed out")

// DefaultBaseDelay 退避基準 3 秒，第 n 次重試前等待 base * 2^n
const DefaultBaseDelay = 3 * time.Second

// Class 錯誤分類
type Class int

const (
	ClassFatal Class = iota
	ClassRateLimit
	ClassTimeout
)

func (c Class) String() string {
	switch c {
	case ClassRateLimit:
		return "rate_limit"
	case ClassTimeout:
		return "timeout"
	default:
		return "fatal"
	}
}

// statusRateLimited 訊息中獨立出現的 429，不比對 "gpt-4290" 之類的名稱
var statusRateLimited = regexp.MustCompile(`\b429\b`)

// statusCoder 帶 HTTP 狀態碼的錯誤
type statusCoder interface {
	StatusCode() int
}

// Classify 429 與 resource exhausted / too many requests 為限流，逾時為逾時，其餘不重試
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ClassTimeout
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() == 429 {
		return ClassRateLimit
	}
	msg := strings.ToLower(err.Error())
	if statusRateLimited.MatchString(msg) {
		return ClassRateLimit
	}
	for _, marker := range []string{"resource exhausted", "resource_exhausted", "too many requests"} {
		if strings.Contains(msg, marker) {
			return ClassRateLimit
		}
	}
	return ClassFatal
}

// Clock 可替換的時鐘，測試時注入假時鐘
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock 使用系統時間的時鐘
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait 重試等待的資訊
type Wait struct {
	Attempt    int // 即將進行的重試次數（從 1 開始）
	MaxRetries int
	Delay      time.Duration
	Class      Class
	Err        error
	Message    string
}

// Options 單一呼叫點的設定
type Options struct {
	Name       string
	MaxRetries int
	Timeout    time.Duration
	OnWait     func(Wait)
}

// Invoker 重試執行器
type Invoker struct {
	clock     Clock
	baseDelay time.Duration
}

// NewInvoker 建立執行器，baseDelay <= 0 時使用 3 秒
func NewInvoker(clock Clock, baseDelay time.Duration) *Invoker {
	if clock == nil {
		clock = RealClock()
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Invoker{clock: clock, baseDelay: baseDelay}
}

// Clock 回傳執行器使用的時鐘
func (inv *Invoker) Clock() Clock {
	return inv.clock
}

// Delay 第 attempt 次（從 0 開始）失敗後的等待時間
func (inv *Invoker) Delay(attempt int) time.Duration {
	return time.Duration(float64(inv.baseDelay) * math.Pow(2, float64(attempt)))
}

// Invoke 執行 call(params)，每次呼叫都與逾時競賽；
// 限流與逾時錯誤在還有重試次數時等待後重試，其他錯誤立即返回。
func Invoke[P, R any](ctx context.Context, inv *Invoker, call func(context.Context, P) (R, error), params P, opts Options) (R, error) {
	var zero R
	for attempt := 0; ; attempt++ {
		res, err := once(ctx, call, params, opts.Timeout)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		class := Classify(err)
		if class == ClassFatal {
			return zero, err
		}
		if attempt >= opts.MaxRetries {
			common.LogWarn("外部呼叫重試次數用盡",
				zap.String("call", opts.Name),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return zero, fmt.Errorf("%s failed after %d attempts: %w", opts.Name, attempt+1, err)
		}

		delay := inv.Delay(attempt)
		w := Wait{
			Attempt:    attempt + 1,
			MaxRetries: opts.MaxRetries,
			Delay:      delay,
			Class:      class,
			Err:        err,
			Message:    WaitMessage(class, delay, attempt+1, opts.MaxRetries),
		}
		metrics.RetriesTotal.WithLabelValues(class.String()).Inc()
		common.LogInfo("外部呼叫等待重試",
			zap.String("call", opts.Name),
			zap.String("class", class.String()),
			zap.Int("attempt", w.Attempt),
			zap.Duration("delay", delay),
		)
		if opts.OnWait != nil {
			opts.OnWait(w)
		}

		if err := inv.clock.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

type outcome[R any] struct {
	res R
	err error
}

func once[P, R any](ctx context.Context, call func(context.Context, P) (R, error), params P, timeout time.Duration) (R, error) {
	var zero R
	if timeout <= 0 {
		return call(ctx, params)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[R], 1)
	go func() {
		res, err := call(callCtx, params)
		done <- outcome[R]{res, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return o.res, o.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

// WaitMessage 重試等待中顯示給使用者的訊息
func WaitMessage(class Class, delay time.Duration, attempt, maxRetries int) string {
	secs := int(delay.Round(time.Second) / time.Second)
	if class == ClassTimeout {
		return fmt.Sprintf("応答がタイムアウトしました。%d秒後に再試行します（%d/%d）", secs, attempt, maxRetries)
	}
	return fmt.Sprintf("アクセスが集中しています。%d秒後に再試行します（%d/%d）", secs, attempt, maxRetries)
}
