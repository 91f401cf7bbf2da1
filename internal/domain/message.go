package domain

import (
	"fmt"
	"strings"
	"time"

	"gitee.com/flycash/courier-platform/internal/errs"
)

// MsgStatus 消息状态
type MsgStatus string

const (
	MsgStatusPending   MsgStatus = "P" // 待处理
	MsgStatusQueued    MsgStatus = "Q" // 已入队
	MsgStatusWired     MsgStatus = "W" // 已提交给供应商
	MsgStatusSent      MsgStatus = "S" // 已发送
	MsgStatusDelivered MsgStatus = "D" // 已送达
	MsgStatusErrored   MsgStatus = "E" // 出错，等待重试
	MsgStatusFailed    MsgStatus = "F" // 彻底失败
	MsgStatusHandled   MsgStatus = "H" // 入站消息已处理
)

// MsgDirection 消息方向
type MsgDirection string

const (
	DirectionIn  MsgDirection = "I"
	DirectionOut MsgDirection = "O"
)

// Attachment 附件，序列化为 "类型:地址"
type Attachment struct {
	ContentType string
	URL         string
}

func (a Attachment) String() string {
	return fmt.Sprintf("%s:%s", a.ContentType, a.URL)
}

// ParseAttachment 解析 "类型:地址" 形式的附件
func ParseAttachment(s string) Attachment {
	const parts = 2
	seg := strings.SplitN(s, ":", parts)
	if len(seg) < parts {
		return Attachment{ContentType: "", URL: s}
	}
	return Attachment{ContentType: seg[0], URL: seg[1]}
}

// Msg 消息领域模型
type Msg struct {
	ID           int64
	UUID         string
	OrgID        int64
	ChannelID    int64
	ChannelUUID  string
	ContactID    int64
	ContactURNID int64

	URN     string // 目的地址，含会话类地址的认证信息
	URNAuth string

	Text        string
	Attachments []Attachment
	Metadata    map[string]any

	Direction    MsgDirection
	Status       MsgStatus
	HighPriority bool
	ErrorCount   int

	// 回复串联：本消息所回复的消息，以及那条消息在供应商侧的外部ID
	ResponseToID         int64
	ResponseToExternalID string
	ExternalID           string

	// 计费归属，0 表示尚未分配
	TopUpID int64

	CreatedOn   time.Time
	ModifiedOn  time.Time
	QueuedOn    time.Time
	SentOn      time.Time
	NextAttempt time.Time
}

// Validate 校验出站消息的必要字段
func (m *Msg) Validate() error {
	if m.OrgID <= 0 {
		return fmt.Errorf("%w: OrgID = %d", errs.ErrInvalidParameter, m.OrgID)
	}
	if m.ChannelID <= 0 {
		return fmt.Errorf("%w: ChannelID = %d", errs.ErrInvalidParameter, m.ChannelID)
	}
	if m.URN == "" {
		return fmt.Errorf("%w: URN 为空", errs.ErrInvalidParameter)
	}
	if m.Text == "" && len(m.Attachments) == 0 {
		return fmt.Errorf("%w: 消息内容为空", errs.ErrInvalidParameter)
	}
	return nil
}

// URNScheme 返回目的地址的类型部分
func (m *Msg) URNScheme() string {
	idx := strings.Index(m.URN, ":")
	if idx < 0 {
		return ""
	}
	return m.URN[:idx]
}
