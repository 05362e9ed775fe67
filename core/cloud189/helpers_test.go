package cloud189

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/wes-lin/cloud189-sdk/core/crypto"
)

// testUploadKey 注入签名器的固定上传密钥，便于服务端握手解密 params。
const testUploadKey = "0123456789abcdef"

// testPubKeyCache 全部测试共用一把 RSA 公钥，与服务端下发的裸 Base64 格式一致。
var testPubKeyCache = func() string {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(der)
}()

func testRSAPubKey(t *testing.T) string {
	t.Helper()
	return testPubKeyCache
}

// decryptUploadParams 还原上传域 params：hex 密文经 AES-ECB 解密得到查询串的 hex 编码。
func decryptUploadParams(t *testing.T, params, key string) string {
	t.Helper()
	ciphertext, err := hex.DecodeString(params)
	if err != nil {
		t.Fatalf("params 非十六进制: %v", err)
	}
	plain, err := crypto.DecryptECB([]byte(key), ciphertext)
	if err != nil {
		t.Fatalf("params 解密失败: %v", err)
	}
	joined, err := hex.DecodeString(string(plain))
	if err != nil {
		t.Fatalf("明文应为查询串的十六进制编码: %v", err)
	}
	return string(joined)
}
