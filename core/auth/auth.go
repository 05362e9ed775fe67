// Package auth 封装天翼云盘的认证流程：
// 密码登录、accessToken 登录、SSON Cookie 登录以及 refreshToken 刷新。
package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wes-lin/cloud189-sdk/core/crypto"
	"github.com/wes-lin/cloud189-sdk/core/httpclient"
)

const (
	// AppID 客户端应用标识。
	AppID = "8025431004"
	// ClientType 登录页的客户端类型。
	ClientType = "10020"
	// AccountType 帐号类型，固定为天翼帐号。
	AccountType = "02"
	// ReturnURL 登录完成后的跳转页。
	ReturnURL = "https://m.cloud189.cn/zhuanti/2020/loginErrorPc/index.html"
	// UserAgent 模拟 PC 浏览器。
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/87.0.4280.88 Safari/537.36"
)

// Endpoints 允许替换认证相关接口地址，便于测试或自定义环境。
type Endpoints struct {
	WebURL  string
	AuthURL string
	APIURL  string
}

func defaultEndpoints() Endpoints {
	return Endpoints{
		WebURL:  "https://cloud.189.cn",
		AuthURL: "https://open.e.189.cn",
		APIURL:  "https://api.cloud.189.cn",
	}
}

// AuthClient 负责与统一认证平台交互。
type AuthClient struct {
	client    *httpclient.Client
	logger    httpclient.Logger
	endpoints Endpoints
	now       func() time.Time
}

// Option 自定义认证客户端。
type Option func(*AuthClient)

// WithLogger 注入日志。
func WithLogger(logger httpclient.Logger) Option {
	return func(a *AuthClient) {
		a.logger = logger
	}
}

// WithEndpoints 替换默认接口地址。
func WithEndpoints(ep Endpoints) Option {
	return func(a *AuthClient) {
		a.endpoints = ep
	}
}

// WithNow 替换时间来源，便于测试。
func WithNow(now func() time.Time) Option {
	return func(a *AuthClient) {
		a.now = now
	}
}

// NewAuthClient 创建认证客户端。
func NewAuthClient(client *httpclient.Client, opts ...Option) *AuthClient {
	if client == nil {
		client = httpclient.NewClient()
	}
	a := &AuthClient{
		client:    client,
		logger:    httpclient.NopLogger{},
		endpoints: defaultEndpoints(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.logger == nil {
		a.logger = httpclient.NopLogger{}
	}
	return a
}

// GetEncrypt 获取 RSA 公钥与密文前缀。
func (a *AuthClient) GetEncrypt(ctx context.Context) (*EncryptConf, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.AuthURL+"/api/logbox/config/encryptConf.do", nil)
	if err != nil {
		return nil, err
	}
	var conf EncryptConf
	if err := a.client.Do(req, &conf); err != nil {
		return nil, err
	}
	if conf.Data.PubKey == "" {
		return nil, fmt.Errorf("auth: 加密配置缺少公钥")
	}
	return &conf, nil
}

// GetLoginForm 抓取登录页，解析出提交登录所需的表单参数。
func (a *AuthClient) GetLoginForm(ctx context.Context) (*LoginForm, error) {
	resp, err := a.fetchLoginPage(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseLoginForm(string(body))
}

// LoginByPassword 用户名密码登录，换取会话凭证。
func (a *AuthClient) LoginByPassword(ctx context.Context, username, password string) (*TokenSession, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	a.logger.Debugf("auth: 开始密码登录")

	var (
		conf *EncryptConf
		form *LoginForm
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		conf, err = a.GetEncrypt(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		form, err = a.GetLoginForm(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data, err := a.buildLoginForm(conf, form, username, password)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.AuthURL+"/api/logbox/oauth2/loginSubmit.do", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", a.endpoints.AuthURL)
	req.Header.Set("lt", form.Lt)
	req.Header.Set("REQID", form.ReqID)

	var result loginResult
	if err := a.client.Do(req, &result); err != nil {
		return nil, err
	}
	if err := checkResult(result.Result, result.Msg); err != nil {
		return nil, err
	}
	if result.ToURL == "" {
		return nil, fmt.Errorf("auth: 登录响应缺少跳转地址")
	}
	return a.getSessionForPC(ctx, url.Values{"redirectURL": {result.ToURL}})
}

// LoginByAccessToken 通过已有的 accessToken 换取会话凭证。
func (a *AuthClient) LoginByAccessToken(ctx context.Context, accessToken string) (*TokenSession, error) {
	a.logger.Debugf("auth: 使用 accessToken 登录")
	return a.getSessionForPC(ctx, url.Values{"accessToken": {accessToken}})
}

// LoginBySsoCookie 通过 SSON Cookie 登录，跳过用户名密码校验。
func (a *AuthClient) LoginBySsoCookie(ctx context.Context, cookie string) (*TokenSession, error) {
	a.logger.Debugf("auth: 使用 SSON Cookie 登录")
	first, err := a.fetchLoginPage(ctx, nil)
	if err != nil {
		return nil, err
	}
	io.Copy(io.Discard, first.Body)
	first.Body.Close()

	redirect, err := a.fetchRedirect(ctx, first.Request.URL.String(), cookie)
	if err != nil {
		return nil, err
	}
	return a.getSessionForPC(ctx, url.Values{"redirectURL": {redirect}})
}

// RefreshToken 刷新 accessToken，返回新的 token 对与有效期（秒）。
func (a *AuthClient) RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenSession, error) {
	form := url.Values{}
	form.Set("clientId", AppID)
	form.Set("refreshToken", refreshToken)
	form.Set("grantType", "refresh_token")
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.AuthURL+"/api/oauth2/refreshToken.do", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var session RefreshTokenSession
	if err := a.client.Do(req, &session); err != nil {
		return nil, err
	}
	if err := checkResult(session.Result, session.Msg); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("auth: 刷新响应缺少 accessToken")
	}
	return &session, nil
}

func (a *AuthClient) getSessionForPC(ctx context.Context, extra url.Values) (*TokenSession, error) {
	params := url.Values{}
	params.Set("appId", AppID)
	for k, v := range clientSuffix(a.now()) {
		params.Set(k, v)
	}
	for k, vs := range extra {
		for _, v := range vs {
			params.Set(k, v)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.APIURL+"/getSessionForPC.action?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json;charset=UTF-8")
	req.Header.Set("User-Agent", UserAgent)

	var session TokenSession
	if err := a.client.Do(req, &session); err != nil {
		return nil, err
	}
	if session.ResCode != 0 {
		return nil, checkResult(session.ResCode, session.ResMessage)
	}
	return &session, nil
}

func (a *AuthClient) fetchLoginPage(ctx context.Context, header http.Header) (*http.Response, error) {
	params := url.Values{}
	params.Set("appId", AppID)
	params.Set("clientType", ClientType)
	params.Set("returnURL", ReturnURL)
	params.Set("timeStamp", fmt.Sprintf("%d", a.now().UnixMilli()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoints.WebURL+"/api/portal/unifyLoginForPC.action?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := a.client.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("auth: 登录页请求失败，状态码 %d", resp.StatusCode)
	}
	return resp, nil
}

// fetchRedirect 携带 SSON Cookie 再次访问登录页，返回重定向后的最终地址。
func (a *AuthClient) fetchRedirect(ctx context.Context, pageURL, sson string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Cookie", "SSON="+sson)
	resp, err := a.client.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("auth: SSON 跳转失败，状态码 %d", resp.StatusCode)
	}
	return resp.Request.URL.String(), nil
}

func (a *AuthClient) buildLoginForm(conf *EncryptConf, form *LoginForm, username, password string) (url.Values, error) {
	encUser, err := crypto.EncryptHex(conf.Data.PubKey, username)
	if err != nil {
		return nil, err
	}
	encPwd, err := crypto.EncryptHex(conf.Data.PubKey, password)
	if err != nil {
		return nil, err
	}
	data := url.Values{}
	data.Set("appKey", AppID)
	data.Set("accountType", AccountType)
	data.Set("validateCode", "")
	data.Set("captchaToken", form.CaptchaToken)
	data.Set("dynamicCheck", "FALSE")
	data.Set("clientType", "1")
	data.Set("cb_SaveName", "3")
	data.Set("isOauth2", "false")
	data.Set("returnUrl", ReturnURL)
	data.Set("paramId", form.ParamID)
	data.Set("userName", conf.Data.Pre+encUser)
	data.Set("password", conf.Data.Pre+encPwd)
	return data, nil
}

// clientSuffix 返回接口要求附带的客户端标识参数。
func clientSuffix(now time.Time) map[string]string {
	return map[string]string{
		"clientType": "TELEPC",
		"version":    "6.2",
		"channelId":  "web_cloud.189.cn",
		"rand":       fmt.Sprintf("%d", now.UnixMilli()),
	}
}
