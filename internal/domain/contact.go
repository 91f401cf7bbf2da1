package domain

import "time"

// Contact 联系人领域模型
type Contact struct {
	ID        int64
	UUID      string
	OrgID     int64
	Name      string
	IsStopped bool // 联系人是否已退订
	LastSeen  time.Time
}

// ContactURN 联系人的一个地址，preferred channel 记录在 ChannelID 上
type ContactURN struct {
	ID        int64
	ContactID int64
	ChannelID int64 // 后续出站消息优先使用的渠道
	Scheme    string
	Path      string
	Auth      string // 会话类地址的认证令牌
}

// URN 返回 "类型:路径" 形式的完整地址
func (u ContactURN) URN() string {
	return u.Scheme + ":" + u.Path
}
