package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// Sign 计算同步请求的签名。
// 密钥材料是渠道密钥拼接请求时间戳，对请求体做 HMAC-SHA256，
// 输出 URL 安全的 base64，和设备固件的实现保持一致。
func Sign(secret string, ts int64, body []byte) string {
	key := secret + strconv.FormatInt(ts, 10)
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify 常数时间比较签名
func Verify(secret string, ts int64, body []byte, sig string) bool {
	expected, err := base64.URLEncoding.DecodeString(Sign(secret, ts, body))
	if err != nil {
		return false
	}
	actual, err := base64.URLEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, actual)
}
