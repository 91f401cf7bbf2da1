package channel

import (
	"crypto/rand"
	"math/big"
)

// 认领码要靠人工抄录，去掉易混淆的 0/O/1/I
const tokenAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// randomToken 生成指定长度的随机令牌，用于渠道密钥与认领码
func randomToken(length int) string {
	out := make([]byte, length)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand 在受支持平台上不会失败
			panic(err)
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out)
}
