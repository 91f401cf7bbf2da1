package alert

const (
	eventName = "channel_alert_events"
)

// 事件动作：告警打开时通知一次，关闭时不再打扰
const (
	ActionOpened = "opened"
	ActionClosed = "closed"
)

// Event 告警状态变更事件，通知侧消费后给渠道负责人发邮件
type Event struct {
	AlertID     int64  `json:"alert_id"`
	ChannelID   int64  `json:"channel_id"`
	ChannelUUID string `json:"channel_uuid"`
	ChannelName string `json:"channel_name"`
	AlertType   string `json:"alert_type"`
	Action      string `json:"action"`
	AlertEmail  string `json:"alert_email"`
	// 电量告警附带触发时刻的电量
	PowerLevel int   `json:"power_level"`
	CreatedOn  int64 `json:"created_on"`
}
