// Package cloud189 提供天翼云盘的客户端：
// 会话维护、按域签名、文件与上传接口、批量任务。
package cloud189

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wes-lin/cloud189-sdk/core/auth"
	"github.com/wes-lin/cloud189-sdk/core/httpclient"
	"github.com/wes-lin/cloud189-sdk/core/store"
)

// Session 进程内缓存的会话凭证，由客户端独占维护。
type Session struct {
	AccessToken string
	SessionKey  string
}

// Config 客户端凭证配置，三种登录方式至少配置一种。
type Config struct {
	Username   string
	Password   string
	SsonCookie string
	TokenStore store.TokenStore
}

// Client 统一封装接口调用、签名与会话维护。
type Client struct {
	http       *httpclient.Client
	authClient *auth.AuthClient
	signer     *Signer
	logger     httpclient.Logger
	store      store.TokenStore
	now        func() time.Time

	username   string
	password   string
	ssonCookie string

	webBaseURL    string
	apiBaseURL    string
	uploadBaseURL string

	broker *sessionBroker
}

// Option 自定义客户端配置。
type Option func(*Client)

// WithHTTPClient 注入自定义 httpclient.Client。
func WithHTTPClient(cli *httpclient.Client) Option {
	return func(c *Client) {
		if cli != nil {
			c.http = cli
		}
	}
}

// WithLogger 注入日志接口。
func WithLogger(logger httpclient.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuthClient 替换认证客户端，便于测试。
func WithAuthClient(ac *auth.AuthClient) Option {
	return func(c *Client) {
		if ac != nil {
			c.authClient = ac
		}
	}
}

// WithSigner 注入自定义签名器，便于测试。
func WithSigner(signer *Signer) Option {
	return func(c *Client) {
		if signer != nil {
			c.signer = signer
		}
	}
}

// WithBaseURLs 替换默认的 Web/API/Upload 基础地址。
func WithBaseURLs(web, api, upload string) Option {
	return func(c *Client) {
		if web != "" {
			c.webBaseURL = web
		}
		if api != "" {
			c.apiBaseURL = api
		}
		if upload != "" {
			c.uploadBaseURL = upload
		}
	}
}

// WithNow 替换时间来源，便于测试。
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// GetSessionKey 返回当前会话的 sessionKey，必要时走登录链获取。
func (c *Client) GetSessionKey(ctx context.Context) (string, error) {
	return c.broker.GetSessionKey(ctx)
}

// GetAccessToken 返回当前会话的 accessToken，必要时基于 sessionKey 换取。
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	return c.broker.GetAccessToken(ctx)
}

// NewClient 创建客户端。未配置任何登录方式时立即失败。
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	hasPassword := cfg.Username != "" && cfg.Password != ""
	if cfg.TokenStore == nil && cfg.SsonCookie == "" && !hasPassword {
		return nil, ErrNoCredentials
	}
	cli := &Client{
		http:          httpclient.NewClient(),
		logger:        httpclient.NopLogger{},
		store:         cfg.TokenStore,
		now:           time.Now,
		username:      cfg.Username,
		password:      cfg.Password,
		ssonCookie:    cfg.SsonCookie,
		webBaseURL:    DefaultWebBaseURL,
		apiBaseURL:    DefaultAPIBaseURL,
		uploadBaseURL: DefaultUploadBaseURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cli)
		}
	}
	if cli.logger == nil {
		cli.logger = httpclient.NopLogger{}
	}
	cli.http.Logger = cli.logger
	if cli.store == nil {
		cli.store = store.NewMemoryStore(store.Token{})
	}
	if cli.authClient == nil {
		cli.authClient = auth.NewAuthClient(cli.http, auth.WithLogger(cli.logger))
	}
	if cli.signer == nil {
		cli.signer = NewSigner(WithSignerNow(cli.now))
	}
	cli.broker = &sessionBroker{client: cli, flight: new(singleflight.Group)}
	return cli, nil
}
