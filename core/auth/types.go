package auth

import (
	"fmt"
	"regexp"
)

// EncryptConf 统一认证下发的加密配置。
type EncryptConf struct {
	Result int `json:"result"`
	Data   struct {
		Pre    string `json:"pre"`
		PubKey string `json:"pubKey"`
	} `json:"data"`
}

// LoginForm 登录页内嵌的表单参数。
type LoginForm struct {
	CaptchaToken string
	Lt           string
	ParamID      string
	ReqID        string
}

// TokenSession 登录成功后返回的完整会话凭证。
type TokenSession struct {
	ResCode             int    `json:"res_code"`
	ResMessage          string `json:"res_message"`
	AccessToken         string `json:"accessToken"`
	RefreshToken        string `json:"refreshToken"`
	SessionKey          string `json:"sessionKey"`
	FamilySessionKey    string `json:"familySessionKey"`
	FamilySessionSecret string `json:"familySessionSecret"`
	LoginName           string `json:"loginName"`
}

// RefreshTokenSession refreshToken.do 的响应，ExpiresIn 单位为秒。
type RefreshTokenSession struct {
	Result       int    `json:"result"`
	Msg          string `json:"msg"`
	ExpiresIn    int64  `json:"expiresIn"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginResult struct {
	Result int    `json:"result"`
	Msg    string `json:"msg"`
	ToURL  string `json:"toUrl"`
}

var (
	captchaTokenRe = regexp.MustCompile(`'captchaToken' value='(.+?)'`)
	ltRe           = regexp.MustCompile(`lt = "(.+?)"`)
	paramIDRe      = regexp.MustCompile(`paramId = "(.+?)"`)
	reqIDRe        = regexp.MustCompile(`reqId = "(.+?)"`)
)

func parseLoginForm(html string) (*LoginForm, error) {
	form := &LoginForm{
		CaptchaToken: matchFirst(captchaTokenRe, html),
		Lt:           matchFirst(ltRe, html),
		ParamID:      matchFirst(paramIDRe, html),
		ReqID:        matchFirst(reqIDRe, html),
	}
	if form.CaptchaToken == "" || form.Lt == "" || form.ParamID == "" || form.ReqID == "" {
		return nil, fmt.Errorf("auth: 登录页缺少表单参数: %+v", form)
	}
	return form, nil
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
