package contact

const (
	eventName = "contact_events"
)

// 事件类型
const (
	TypeNewContact  = "new_contact"  // 首次见到该地址，触发动态分组全量计算
	TypeMsgReceived = "msg_received" // 已有联系人来了新消息，触发分组增量计算
)

// Event 联系人变更事件，分组计算侧消费后重算该联系人的动态分组归属
type Event struct {
	OrgID     int64  `json:"org_id"`
	ContactID int64  `json:"contact_id"`
	URNID     int64  `json:"urn_id"`
	ChannelID int64  `json:"channel_id"`
	MsgID     int64  `json:"msg_id"`
	Type      string `json:"type"`
	CreatedOn int64  `json:"created_on"`
}
