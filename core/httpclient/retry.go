package httpclient

import (
	"errors"
	"net/http"
	"time"
)

// RetryPolicy 定义传输层重试策略。该层只处理网络抖动与限流类状态码，
// 凭证失效的恢复由上层请求管线负责。
type RetryPolicy interface {
	ShouldRetry(req *http.Request, resp *http.Response, err error, attempt int) (bool, time.Duration)
}

// RetryConfig 配置指数退避重试。
type RetryConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	AllowStatuses []int
	Logger        Logger
}

// DefaultRetryConfig 返回与官方客户端一致的默认配置。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		AllowStatuses: []int{
			http.StatusRequestTimeout,
			http.StatusRequestEntityTooLarge,
			http.StatusTooManyRequests,
			http.StatusNetworkAuthenticationRequired,
		},
	}
}

// BackoffRetry 实现带状态码白名单的指数退避重试。
type BackoffRetry struct {
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
	allowStatuses map[int]struct{}
	logger        Logger
}

// NewBackoffRetry 创建重试策略。
func NewBackoffRetry(cfg RetryConfig) *BackoffRetry {
	statuses := make(map[int]struct{})
	for _, code := range cfg.AllowStatuses {
		statuses[code] = struct{}{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	return &BackoffRetry{
		maxRetries:    cfg.MaxRetries,
		baseDelay:     cfg.BaseDelay,
		maxDelay:      cfg.MaxDelay,
		allowStatuses: statuses,
		logger:        logger,
	}
}

// ShouldRetry 根据错误类型与状态码白名单决定是否重试。
func (r *BackoffRetry) ShouldRetry(req *http.Request, resp *http.Response, err error, attempt int) (bool, time.Duration) {
	if r == nil {
		return false, 0
	}
	if attempt >= r.maxRetries {
		return false, 0
	}
	delay := r.backoff(attempt)

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		r.logger.Debugf("网络错误，第 %d 次重试: %v", attempt+1, netErr.Err)
		return true, delay
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	var ec *ErrCode
	if status == 0 && errors.As(err, &ec) {
		status = ec.Status
	}
	if _, ok := r.allowStatuses[status]; ok {
		r.logger.Debugf("状态码 %d 命中白名单，第 %d 次重试", status, attempt+1)
		return true, delay
	}
	return false, 0
}

func (r *BackoffRetry) backoff(attempt int) time.Duration {
	base := r.baseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	max := r.maxDelay
	if max <= 0 {
		max = 2 * time.Second
	}
	delay := base << attempt
	if delay > max {
		delay = max
	}
	return delay
}
