package auth

import (
	coreerrors "github.com/wes-lin/cloud189-sdk/core/errors"
)

// ErrMissingCredentials 标记缺少用户名或密码。
var ErrMissingCredentials = coreerrors.New(coreerrors.ErrCodeInvalidArgument, "auth: 缺少登录凭证")

// ErrInvalidRefreshToken 标记 refreshToken 已失效，需要走完整登录流程。
var ErrInvalidRefreshToken = coreerrors.New(coreerrors.ErrCodeInvalidRefreshToken, "auth: refreshToken 已失效")

const invalidRefreshTokenResult = -117

// checkResult 将认证接口的业务码映射为结构化错误。
func checkResult(result int, msg string) error {
	switch result {
	case 0:
		return nil
	case invalidRefreshTokenResult:
		return coreerrors.Wrap(coreerrors.ErrCodeInvalidRefreshToken, msg, ErrInvalidRefreshToken)
	default:
		return coreerrors.New(coreerrors.ErrCodeAuthAPI, msg)
	}
}
