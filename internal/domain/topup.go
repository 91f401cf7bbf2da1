package domain

import "time"

// TopUp 业务方购买的一笔额度，入站消息逐条从中扣减
type TopUp struct {
	ID        int64
	OrgID     int64
	Credits   int64 // 总额度
	Used      int64 // 已使用
	ExpiresOn time.Time
}

// Remaining 剩余额度
func (t TopUp) Remaining() int64 {
	return t.Credits - t.Used
}
