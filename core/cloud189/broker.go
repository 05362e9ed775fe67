package cloud189

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wes-lin/cloud189-sdk/core/auth"
	"github.com/wes-lin/cloud189-sdk/core/store"
)

// 密码与 SSON 登录后 accessToken 的本地有效期。
const loginTokenValidity = 6 * 24 * time.Hour

// sessionBroker 维护进程内的会话凭证与上传 RSA 公钥。
// 同类凭证的并发获取经 singleflight 合并为一次网络调用，
// 调用结束（无论成败）后飞行句柄自动清除。
type sessionBroker struct {
	client *Client
	flight *singleflight.Group

	mu      sync.Mutex
	session Session
	rsaKey  *RsaKey
}

// GetSessionKey 返回缓存的 sessionKey，缺失时走登录链获取。
func (b *sessionBroker) GetSessionKey(ctx context.Context) (string, error) {
	b.mu.Lock()
	if key := b.session.SessionKey; key != "" {
		b.mu.Unlock()
		return key, nil
	}
	b.mu.Unlock()

	v, err, _ := b.flight.Do("sessionKey", func() (any, error) {
		session, err := b.acquireSession(ctx)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.session.SessionKey = session.SessionKey
		b.mu.Unlock()
		return session.SessionKey, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetAccessToken 返回缓存的 accessToken，缺失时基于 sessionKey 换取。
func (b *sessionBroker) GetAccessToken(ctx context.Context) (string, error) {
	b.mu.Lock()
	if token := b.session.AccessToken; token != "" {
		b.mu.Unlock()
		return token, nil
	}
	b.mu.Unlock()

	v, err, _ := b.flight.Do("accessToken", func() (any, error) {
		rsp, err := b.client.getAccessTokenBySsKey(ctx)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.session.AccessToken = rsp.AccessToken
		b.mu.Unlock()
		return rsp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetRsaKey 返回未过期的上传 RSA 公钥，过期或缺失时重新获取。
func (b *sessionBroker) GetRsaKey(ctx context.Context) (*RsaKey, error) {
	b.mu.Lock()
	if key := b.rsaKey; key != nil && key.Expire > b.client.now().UnixMilli() {
		b.mu.Unlock()
		return key, nil
	}
	b.mu.Unlock()

	v, err, _ := b.flight.Do("rsaKey", func() (any, error) {
		rsp, err := b.client.generateRsaKey(ctx)
		if err != nil {
			return nil, err
		}
		key := rsp.RsaKey
		b.mu.Lock()
		b.rsaKey = &key
		b.mu.Unlock()
		return &key, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*RsaKey), nil
}

// InvalidateSessionKey 清空缓存的 sessionKey，下次调用重新获取。
func (b *sessionBroker) InvalidateSessionKey() {
	b.mu.Lock()
	b.session.SessionKey = ""
	b.mu.Unlock()
}

// InvalidateAccessToken 清空缓存的 accessToken。
func (b *sessionBroker) InvalidateAccessToken() {
	b.mu.Lock()
	b.session.AccessToken = ""
	b.mu.Unlock()
}

// acquireSession 按 存储 token → refreshToken → SSON Cookie → 密码 的顺序
// 逐级尝试登录，某一级失败记录日志后落入下一级，全部失败返回 ErrNoSession。
func (b *sessionBroker) acquireSession(ctx context.Context) (*auth.TokenSession, error) {
	c := b.client
	token, err := c.store.Get()
	if err != nil {
		c.logger.Errorf("cloud189: 读取凭证存储失败: %v", err)
	}

	if token.Valid(c.now()) {
		session, err := c.authClient.LoginByAccessToken(ctx, token.AccessToken)
		if err == nil {
			return session, nil
		}
		c.logger.Errorf("cloud189: accessToken 登录失败: %v", err)
	}

	if token.RefreshToken != "" {
		session, err := b.loginByRefreshToken(ctx, token.RefreshToken)
		if err == nil {
			return session, nil
		}
		c.logger.Errorf("cloud189: refreshToken 登录失败: %v", err)
	}

	if c.ssonCookie != "" {
		session, err := c.authClient.LoginBySsoCookie(ctx, c.ssonCookie)
		if err == nil {
			b.persist(session.AccessToken, session.RefreshToken, c.now().Add(loginTokenValidity))
			return session, nil
		}
		c.logger.Errorf("cloud189: SSON Cookie 登录失败: %v", err)
	}

	if c.username != "" && c.password != "" {
		session, err := c.authClient.LoginByPassword(ctx, c.username, c.password)
		if err == nil {
			b.persist(session.AccessToken, session.RefreshToken, c.now().Add(loginTokenValidity))
			return session, nil
		}
		c.logger.Errorf("cloud189: 密码登录失败: %v", err)
	}

	return nil, ErrNoSession
}

func (b *sessionBroker) loginByRefreshToken(ctx context.Context, refreshToken string) (*auth.TokenSession, error) {
	c := b.client
	refreshed, err := c.authClient.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	b.persist(refreshed.AccessToken, refreshed.RefreshToken,
		c.now().Add(time.Duration(refreshed.ExpiresIn)*time.Second))
	session, err := c.authClient.LoginByAccessToken(ctx, refreshed.AccessToken)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (b *sessionBroker) persist(accessToken, refreshToken string, expiresAt time.Time) {
	err := b.client.store.Update(store.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		b.client.logger.Errorf("cloud189: 持久化凭证失败: %v", err)
	}
}
