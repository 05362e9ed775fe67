package crypto

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// UUID 生成版本 4 的随机 UUID，用作请求 ID。
func UUID() string {
	return uuid.NewString()
}

// RandomTemplate 按模板生成随机串：x 替换为随机十六进制位，y 替换为 8~b。
// 上传签名的一次性密钥使用模板 "xxxxxxxxxxxx4xxxyxxxxxxxxxxxxxxx"。
func RandomTemplate(tmpl string) string {
	out := []byte(tmpl)
	for i, c := range out {
		switch c {
		case 'x':
			out[i] = hexChar(randomNibble())
		case 'y':
			out[i] = hexChar(randomNibble()&0x3 | 0x8)
		}
	}
	return string(out)
}

// RandomIntn 返回 [0, n) 的安全随机整数，n 必须为正。
func RandomIntn(n int) int {
	if n <= 0 {
		return 0
	}
	b := make([]byte, 1)
	if _, err := rand.Read(b); err != nil {
		return 0
	}
	return int(b[0]) % n
}

func randomNibble() int {
	b := make([]byte, 1)
	if _, err := rand.Read(b); err != nil {
		return 0
	}
	return int(b[0]) & 0x0f
}

func hexChar(v int) byte {
	if v < 10 {
		return byte('0' + v)
	}
	return byte('a' + v - 10)
}
