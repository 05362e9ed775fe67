// Package store 维护登录凭证的持久化。
package store

import (
	"sync"
	"time"
)

// Token 保存一组天翼云盘登录凭证。
// 字段允许部分为空，例如仅配置 RefreshToken 的场景。
type Token struct {
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
}

// Valid 判断 AccessToken 是否仍在有效期内。
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// TokenStore 定义凭证读写接口。
// Update 采用合并语义，入参中的零值字段不会覆盖已存储的数据。
type TokenStore interface {
	Get() (Token, error)
	Update(Token) error
}

// MemoryStore 基于内存的凭证存储，适用于单次运行的进程。
type MemoryStore struct {
	mu    sync.Mutex
	token Token
}

func NewMemoryStore(initial Token) *MemoryStore {
	return &MemoryStore{token: initial}
}

func (m *MemoryStore) Get() (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Update(t Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = merge(m.token, t)
	return nil
}

func merge(dst, src Token) Token {
	if src.AccessToken != "" {
		dst.AccessToken = src.AccessToken
	}
	if src.RefreshToken != "" {
		dst.RefreshToken = src.RefreshToken
	}
	if !src.ExpiresAt.IsZero() {
		dst.ExpiresAt = src.ExpiresAt
	}
	return dst
}
