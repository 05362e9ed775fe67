package crypto

import (
	"net/url"
	"sort"
	"strings"
)

// SortJoin 将参数按 key=value 形式拼接后整体排序，再以 & 连接。
// 天翼接口的 MD5 签名要求对拼接结果排序，而不是仅对 key 排序。
func SortJoin(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	items := make([]string, 0, len(params))
	for k, v := range params {
		items = append(items, k+"="+v)
	}
	sort.Strings(items)
	return strings.Join(items, "&")
}

// SortedSignature 计算排序参数串的 MD5 签名。
func SortedSignature(params map[string]string) string {
	return DigestString(SortJoin(params))
}

// JoinValues 以 key 排序后拼接 url.Values，内容不做转义，供 AES 参数加密使用。
func JoinValues(vals url.Values) string {
	if len(vals) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf strings.Builder
	for _, key := range keys {
		for _, v := range vals[key] {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(key)
			buf.WriteByte('=')
			buf.WriteString(v)
		}
	}
	return buf.String()
}
