package domain

import "time"

// AlertType 告警类型
type AlertType string

const (
	AlertTypePower        AlertType = "P" // 设备电量过低
	AlertTypeDisconnected AlertType = "D" // 渠道失联
	AlertTypeSMS          AlertType = "S" // 出站消息积压
)

func (t AlertType) String() string {
	return string(t)
}

// Alert 渠道健康告警，EndedOn 为空表示仍处于打开状态
type Alert struct {
	ID          int64
	ChannelID   int64
	SyncEventID int64 // 触发电量告警的同步事件
	Type        AlertType
	CreatedOn   time.Time
	EndedOn     time.Time
}

// IsOpen 告警是否未关闭
func (a Alert) IsOpen() bool {
	return a.EndedOn.IsZero()
}
