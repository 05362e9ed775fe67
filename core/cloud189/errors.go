package cloud189

import (
	"errors"

	coreerrors "github.com/wes-lin/cloud189-sdk/core/errors"
	"github.com/wes-lin/cloud189-sdk/core/httpclient"
)

// ErrNoSession 表示凭证获取链（token/refreshToken/SSON/密码）全部失败。
var ErrNoSession = coreerrors.New(coreerrors.ErrCodeNoSession, "cloud189: 无法获取会话")

// ErrNoCredentials 表示未配置任何可用的登录方式。
var ErrNoCredentials = coreerrors.New(coreerrors.ErrCodeInvalidConfig, "cloud189: 请配置用户名密码、SSON Cookie 或 TokenStore")

// 服务端下发的凭证失效错误码。
const (
	errCodeInvalidAccessToken = "InvalidAccessToken"
	errCodeInvalidSessionKey  = "InvalidSessionKey"
)

func isInvalidAccessToken(err error) bool {
	return matchErrCode(err, errCodeInvalidAccessToken)
}

func isInvalidSessionKey(err error) bool {
	return matchErrCode(err, errCodeInvalidSessionKey)
}

func matchErrCode(err error, code string) bool {
	var ec *httpclient.ErrCode
	if !errors.As(err, &ec) {
		return false
	}
	return ec.Code == code
}
