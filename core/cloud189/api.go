package cloud189

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	coreerrors "github.com/wes-lin/cloud189-sdk/core/errors"
	"github.com/wes-lin/cloud189-sdk/core/httpclient"
)

// do 执行一次带签名的接口调用。
// 服务端返回凭证失效（InvalidAccessToken/InvalidSessionKey）时
// 清除对应缓存并原样重放一次，重放再失败则直接返回。
func (c *Client) do(ctx context.Context, zone Zone, method, base, path string, params map[string]string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		mws, err := c.sign(ctx, zone, params)
		if err != nil {
			return err
		}
		req, err := buildRequest(ctx, method, base, path, params)
		if err != nil {
			return err
		}
		lastErr = c.http.Do(req, out, mws...)
		if lastErr == nil {
			return nil
		}
		if attempt > 0 {
			break
		}
		switch {
		case isInvalidAccessToken(lastErr):
			c.logger.Debugf("cloud189: accessToken 失效，重新获取后重放 %s", path)
			c.broker.InvalidateAccessToken()
		case isInvalidSessionKey(lastErr):
			c.logger.Debugf("cloud189: sessionKey 失效，重新获取后重放 %s", path)
			c.broker.InvalidateSessionKey()
		default:
			return lastErr
		}
	}
	return lastErr
}

// sign 按域解析凭证并返回对应的签名中间件。
func (c *Client) sign(ctx context.Context, zone Zone, params map[string]string) ([]httpclient.Middleware, error) {
	switch zone {
	case ZoneAPI:
		token, err := c.broker.GetAccessToken(ctx)
		if err != nil {
			return nil, err
		}
		return []httpclient.Middleware{c.signer.AccessToken(params, token)}, nil
	case ZoneWeb:
		key, err := c.broker.GetSessionKey(ctx)
		if err != nil {
			return nil, err
		}
		return []httpclient.Middleware{c.signer.SessionKey(key)}, nil
	case ZoneOpenWeb:
		key, err := c.broker.GetSessionKey(ctx)
		if err != nil {
			return nil, err
		}
		return []httpclient.Middleware{
			c.signer.AppKey(params, WebAppKey),
			c.signer.SessionKey(key),
		}, nil
	case ZoneUpload:
		key, err := c.broker.GetSessionKey(ctx)
		if err != nil {
			return nil, err
		}
		rsaKey, err := c.broker.GetRsaKey(ctx)
		if err != nil {
			return nil, err
		}
		return []httpclient.Middleware{c.signer.Upload(key, rsaKey)}, nil
	default:
		return nil, fmt.Errorf("cloud189: 未知的签名域 %d", zone)
	}
}

// getAccessTokenBySsKey 基于 sessionKey 换取 accessToken。
// 该调用自身即为凭证获取环节，sessionKey 失效时仅清缓存并
// 返回明确错误，不在此处重放，避免获取链内部成环。
func (c *Client) getAccessTokenBySsKey(ctx context.Context) (*AccessTokenResponse, error) {
	key, err := c.broker.GetSessionKey(ctx)
	if err != nil {
		return nil, err
	}
	mws := []httpclient.Middleware{
		c.signer.AppKey(nil, WebAppKey),
		c.signer.SessionKey(key),
	}
	req, err := buildRequest(ctx, http.MethodGet, c.webBaseURL, "/api/open/oauth2/getAccessTokenBySsKey.action", nil)
	if err != nil {
		return nil, err
	}
	var rsp AccessTokenResponse
	if err := c.http.Do(req, &rsp, mws...); err != nil {
		if isInvalidSessionKey(err) {
			c.broker.InvalidateSessionKey()
			return nil, coreerrors.Wrap(coreerrors.ErrCodeInvalidState, "cloud189: 换取 accessToken 时 sessionKey 失效", err)
		}
		return nil, err
	}
	if rsp.AccessToken == "" {
		return nil, coreerrors.New(coreerrors.ErrCodeInvalidState, "cloud189: 换取 accessToken 失败")
	}
	return &rsp, nil
}

// generateRsaKey 获取上传签名使用的 RSA 公钥。
func (c *Client) generateRsaKey(ctx context.Context) (*RsaKeyResponse, error) {
	var rsp RsaKeyResponse
	if err := c.do(ctx, ZoneWeb, http.MethodGet, c.webBaseURL, "/api/security/generateRsaKey.action", nil, &rsp); err != nil {
		return nil, err
	}
	if rsp.PubKey == "" {
		return nil, coreerrors.New(coreerrors.ErrCodeInvalidState, "cloud189: 获取 RSA 公钥失败")
	}
	return &rsp, nil
}

func buildRequest(ctx context.Context, method, base, path string, params map[string]string) (*http.Request, error) {
	u := joinURL(base, path)
	vals := url.Values{}
	for k, v := range params {
		vals.Set(k, v)
	}

	var body io.Reader
	switch strings.ToUpper(method) {
	case http.MethodGet:
		if len(vals) > 0 {
			if strings.Contains(u, "?") {
				u += "&" + vals.Encode()
			} else {
				u += "?" + vals.Encode()
			}
		}
	case http.MethodPost:
		body = strings.NewReader(vals.Encode())
	default:
		return nil, fmt.Errorf("cloud189: 不支持的方法 %s", method)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json;charset=UTF-8")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Referer", DefaultWebBaseURL+"/web/main/")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(vals.Encode())), nil
		}
	}
	return req, nil
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	base = strings.TrimSuffix(base, "/")
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}
