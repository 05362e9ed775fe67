package crypto

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// DigestString 计算字符串的 MD5 十六进制值。
func DigestString(s string) string {
	sum, _ := digest(strings.NewReader(s))
	return sum
}

// DigestBytes 计算字节数据的 MD5 十六进制值。
func DigestBytes(data []byte) string {
	sum, _ := digest(bytes.NewReader(data))
	return sum
}

// DigestFile 计算文件内容的 MD5 十六进制值。
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest(f)
}

// DigestFileChunks 单次顺序读取文件，同时计算整文件 MD5 与各分片 MD5。
// 分片 MD5 为大写十六进制，数量等于 ceil(size/sliceSize)，空文件返回一个空分片摘要。
// 整个过程仅保留一个分片大小的缓冲区，不会将文件全部载入内存。
func DigestFileChunks(path string, sliceSize int64) (string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	fileHash := md5.New()
	var chunks []string
	buf := make([]byte, sliceSize)
	for {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			fileHash.Write(buf[:n])
			sum := md5.Sum(buf[:n])
			chunks = append(chunks, strings.ToUpper(hex.EncodeToString(sum[:])))
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return "", nil, readErr
		}
	}
	if len(chunks) == 0 {
		sum := md5.Sum(nil)
		chunks = append(chunks, strings.ToUpper(hex.EncodeToString(sum[:])))
	}
	return hex.EncodeToString(fileHash.Sum(nil)), chunks, nil
}

// HexToBase64 将十六进制摘要转换为 Base64，分片的 partInfo 使用该格式。
func HexToBase64(hexStr string) (string, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func digest(r io.Reader) (string, error) {
	hash := md5.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
