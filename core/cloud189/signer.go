package cloud189

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wes-lin/cloud189-sdk/core/crypto"
	"github.com/wes-lin/cloud189-sdk/core/httpclient"
)

// Zone 标识请求命中的签名域。
type Zone int

const (
	// ZoneAPI accessToken 签名域（api.cloud.189.cn）。
	ZoneAPI Zone = iota
	// ZoneWeb Web 域，仅附加 sessionKey 查询参数。
	ZoneWeb
	// ZoneOpenWeb Web 开放接口域，AppKey 签名加 sessionKey。
	ZoneOpenWeb
	// ZoneUpload 上传域，AES+RSA+HMAC 三重签名。
	ZoneUpload
)

// Signer 按域生成请求签名。时间与随机源可注入，便于测试。
type Signer struct {
	now       func() time.Time
	requestID func() string
	uploadKey func() string
}

// SignerOption 自定义签名器。
type SignerOption func(*Signer)

// WithSignerNow 替换时间来源。
func WithSignerNow(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// WithSignerRequestID 替换 X-Request-ID 生成逻辑。
func WithSignerRequestID(fn func() string) SignerOption {
	return func(s *Signer) {
		s.requestID = fn
	}
}

// WithSignerUploadKey 替换上传签名的随机密钥生成逻辑。
func WithSignerUploadKey(fn func() string) SignerOption {
	return func(s *Signer) {
		s.uploadKey = fn
	}
}

// NewSigner 创建签名器。
func NewSigner(opts ...SignerOption) *Signer {
	s := &Signer{
		now:       time.Now,
		requestID: requestID,
		uploadKey: uploadKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.requestID == nil {
		s.requestID = requestID
	}
	if s.uploadKey == nil {
		s.uploadKey = uploadKey
	}
	return s
}

func requestID() string {
	return crypto.RandomTemplate("xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx")
}

// uploadKey 生成 16~31 位随机密钥，前 16 位兼作 AES key。
func uploadKey() string {
	s := crypto.RandomTemplate("xxxxxxxxxxxx4xxxyxxxxxxxxxxxxxxx")
	return s[:16+crypto.RandomIntn(16)]
}

// AccessToken 返回 accessToken 域的签名中间件。
// 签名对象为请求参数加 Timestamp/AccessToken 的有序串 MD5。
func (s *Signer) AccessToken(params map[string]string, accessToken string) httpclient.Middleware {
	return func(req *http.Request) error {
		timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)
		data := make(map[string]string, len(params)+2)
		for k, v := range params {
			data[k] = v
		}
		data["Timestamp"] = timestamp
		data["AccessToken"] = accessToken

		req.Header.Set("Sign-Type", "1")
		req.Header.Set("Signature", crypto.SortedSignature(data))
		req.Header.Set("Timestamp", timestamp)
		req.Header.Set("Accesstoken", accessToken)
		return nil
	}
}

// AppKey 返回 Web 开放接口域的签名中间件，MD5 方案同 accessToken 域，
// 以 AppKey 替代 AccessToken。
func (s *Signer) AppKey(params map[string]string, appKey string) httpclient.Middleware {
	return func(req *http.Request) error {
		timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)
		data := make(map[string]string, len(params)+2)
		for k, v := range params {
			data[k] = v
		}
		data["Timestamp"] = timestamp
		data["AppKey"] = appKey

		req.Header.Set("Sign-Type", "1")
		req.Header.Set("Signature", crypto.SortedSignature(data))
		req.Header.Set("Timestamp", timestamp)
		req.Header.Set("AppKey", appKey)
		return nil
	}
}

// SessionKey 返回为 Web 域请求附加 sessionKey 查询参数的中间件。
func (s *Signer) SessionKey(sessionKey string) httpclient.Middleware {
	return func(req *http.Request) error {
		q := req.URL.Query()
		q.Set("sessionKey", sessionKey)
		req.URL.RawQuery = q.Encode()
		return nil
	}
}

// Upload 返回上传域的签名中间件。
// 原查询参数整体 AES-128-ECB 加密为 params，随机密钥经 RSA 公钥加密后随头下发，
// 最终签名为以该密钥为 key 的 HMAC-SHA1。
func (s *Signer) Upload(sessionKey string, rsaKey *RsaKey) httpclient.Middleware {
	return func(req *http.Request) error {
		if rsaKey == nil || rsaKey.PubKey == "" {
			return fmt.Errorf("cloud189: 上传签名缺少 RSA 公钥")
		}
		timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)
		key := s.uploadKey()
		if len(key) < 16 {
			return fmt.Errorf("cloud189: 上传签名密钥不足 16 位")
		}

		joined := crypto.JoinValues(req.URL.Query())
		params, err := crypto.EncryptHexECB([]byte(key[:16]), hex.EncodeToString([]byte(joined)))
		if err != nil {
			return fmt.Errorf("cloud189: 参数加密失败: %w", err)
		}
		encryptionText, err := crypto.EncryptBase64(rsaKey.PubKey, key)
		if err != nil {
			return fmt.Errorf("cloud189: 密钥加密失败: %w", err)
		}
		signData := fmt.Sprintf("SessionKey=%s&Operate=GET&RequestURI=%s&Date=%s&params=%s",
			sessionKey, req.URL.Path, timestamp, params)

		req.Header.Set("X-Request-Date", timestamp)
		req.Header.Set("X-Request-ID", s.requestID())
		req.Header.Set("SessionKey", sessionKey)
		req.Header.Set("EncryptionText", encryptionText)
		req.Header.Set("PkId", rsaKey.PkID)
		req.Header.Set("Signature", crypto.Sign(signData, key))

		// 原查询参数全部替换为加密后的 params。
		req.URL.RawQuery = url.Values{"params": {params}}.Encode()
		return nil
	}
}
