package courier

import (
	"encoding/json"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"github.com/ecodeclub/ekit/slice"
)

// Task 放到队列上的出站任务快照。
// 消费方是独立进程按固定模式反序列化，所以所有键必须始终存在：
// 数字和标识字段缺省写零值，时间字段缺省写 null，绝不省略键。
// 快照一旦入队即不可变，重试会重新生成新的快照。
type Task struct {
	ID           int64  `json:"id"`
	UUID         string `json:"uuid"`
	OrgID        int64  `json:"org_id"`
	ChannelID    int64  `json:"channel_id"`
	ChannelUUID  string `json:"channel_uuid"`
	ContactID    int64  `json:"contact_id"`
	ContactURNID int64  `json:"contact_urn_id"`

	Status    string `json:"status"`
	Direction string `json:"direction"`

	Text         string         `json:"text"`
	URN          string         `json:"urn"`
	Attachments  []string       `json:"attachments"`
	Metadata     map[string]any `json:"metadata"`
	HighPriority bool           `json:"high_priority"`
	ErrorCount   int            `json:"error_count"`

	ResponseToID         int64  `json:"response_to_id"`
	ResponseToExternalID string `json:"response_to_external_id"`
	ExternalID           string `json:"external_id"`

	// 每秒吞吐成本，供外部投递进程自行核算，队列本身按条计数
	TPSCost int `json:"tps_cost"`

	CreatedOn   *string `json:"created_on"`
	ModifiedOn  *string `json:"modified_on"`
	QueuedOn    *string `json:"queued_on"`
	SentOn      *string `json:"sent_on"`
	NextAttempt *string `json:"next_attempt"`
}

// Marshal 序列化为单行 JSON
func (t Task) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// Serialize 把出站消息连同其渠道/联系人/地址关联压平成任务快照。
// 纯函数，只读取内存中已有的字段。
func Serialize(msg domain.Msg) Task {
	urn := msg.URN
	if msg.URNAuth != "" {
		// 会话类地址带上认证令牌，投递进程无需回查
		urn = urn + "#" + msg.URNAuth
	}

	attachments := slice.Map(msg.Attachments, func(_ int, src domain.Attachment) string {
		return src.String()
	})
	if attachments == nil {
		attachments = []string{}
	}

	metadata := msg.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return Task{
		ID:           msg.ID,
		UUID:         msg.UUID,
		OrgID:        msg.OrgID,
		ChannelID:    msg.ChannelID,
		ChannelUUID:  msg.ChannelUUID,
		ContactID:    msg.ContactID,
		ContactURNID: msg.ContactURNID,

		Status:    string(msg.Status),
		Direction: string(msg.Direction),

		Text:         msg.Text,
		URN:          urn,
		Attachments:  attachments,
		Metadata:     metadata,
		HighPriority: msg.HighPriority,
		ErrorCount:   msg.ErrorCount,

		ResponseToID:         msg.ResponseToID,
		ResponseToExternalID: msg.ResponseToExternalID,
		ExternalID:           msg.ExternalID,

		TPSCost: MsgCost(msg),

		CreatedOn:   isoTime(msg.CreatedOn),
		ModifiedOn:  isoTime(msg.ModifiedOn),
		QueuedOn:    isoTime(msg.QueuedOn),
		SentOn:      isoTime(msg.SentOn),
		NextAttempt: isoTime(msg.NextAttempt),
	}
}

// isoTime 零值时间输出显式 null，其余输出 ISO-8601
func isoTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}
