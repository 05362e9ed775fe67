package httpclient

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// RateLimiter 按请求维度限流，在发起请求前阻塞等待。
type RateLimiter interface {
	Wait(ctx context.Context, req *http.Request) error
}

// TokenBucketLimiter 基于令牌桶、按 host 区分的限流实现。
// 上传分片的 PUT 与 API 调用走不同域名，互不占用配额。
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	keyFn   func(*http.Request) string
	qps     float64
	burst   int
}

// NewTokenBucketLimiter 创建限流器，keyFn 为空时按 URL host 分桶。
func NewTokenBucketLimiter(qps float64, burst int, keyFn func(*http.Request) string) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets: make(map[string]*bucket),
		keyFn:   keyFn,
		qps:     qps,
		burst:   burst,
	}
}

// Wait 在发起请求前阻塞，直到当前 key 拿到令牌或上下文取消。
func (l *TokenBucketLimiter) Wait(ctx context.Context, req *http.Request) error {
	if l == nil || l.qps <= 0 {
		return nil
	}
	b := l.bucketFor(req)
	for {
		wait := b.reserve(time.Now())
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *TokenBucketLimiter) bucketFor(req *http.Request) *bucket {
	key := ""
	if req != nil && req.URL != nil {
		key = req.URL.Host
	}
	if l.keyFn != nil {
		if k := l.keyFn(req); k != "" {
			key = k
		}
	}
	if key == "" {
		key = "default"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b := &bucket{qps: l.qps, burst: l.burst, tokens: float64(l.burst), last: time.Now()}
	l.buckets[key] = b
	return b
}

type bucket struct {
	mu     sync.Mutex
	qps    float64
	burst  int
	tokens float64
	last   time.Time
}

func (b *bucket) reserve(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.last).Seconds()
	b.tokens += elapsed * b.qps
	if b.tokens > float64(b.burst) {
		b.tokens = float64(b.burst)
	}
	b.last = now
	if b.tokens >= 1 {
		b.tokens -= 1
		return 0
	}
	need := 1 - b.tokens
	return time.Duration(need / b.qps * float64(time.Second))
}
