package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"
)

// Encrypt 使用 RSA 公钥进行 PKCS1v15 加密。
func Encrypt(pubPEM []byte, data []byte) ([]byte, error) {
	block, _ := pem.Decode(pubPEM)
	if block == nil {
		return nil, errors.New("public key error")
	}
	pub, err := parsePublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	return rsa.EncryptPKCS1v15(rand.Reader, pub, data)
}

// EncryptHex RSA 加密后返回十六进制，登录表单的 userName/password 使用该格式。
func EncryptHex(pubKey string, data string) (string, error) {
	out, err := Encrypt(WrapRSAPubKey(pubKey), []byte(data))
	if err != nil {
		return "", err
	}
	return encodeHex(out), nil
}

// EncryptBase64 RSA 加密后返回 Base64，上传签名的 EncryptionText 使用该格式。
func EncryptBase64(pubKey string, data string) (string, error) {
	out, err := Encrypt(WrapRSAPubKey(pubKey), []byte(data))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// WrapRSAPubKey 将服务端下发的裸 Base64 公钥包装为 PEM，已带头部时原样返回。
func WrapRSAPubKey(pubKey string) []byte {
	if strings.Contains(pubKey, "BEGIN") {
		return []byte(pubKey)
	}
	var buf strings.Builder
	buf.WriteString("-----BEGIN PUBLIC KEY-----\n")
	for len(pubKey) > 64 {
		buf.WriteString(pubKey[:64])
		buf.WriteByte('\n')
		pubKey = pubKey[64:]
	}
	if pubKey != "" {
		buf.WriteString(pubKey)
		buf.WriteByte('\n')
	}
	buf.WriteString("-----END PUBLIC KEY-----\n")
	return []byte(buf.String())
}

func parsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err == nil {
		if key, ok := pub.(*rsa.PublicKey); ok {
			return key, nil
		}
		return nil, errors.New("public key type error")
	}
	if pkcs1, err2 := x509.ParsePKCS1PublicKey(der); err2 == nil {
		return pkcs1, nil
	}
	return nil, err
}
