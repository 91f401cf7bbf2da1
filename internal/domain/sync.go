package domain

import "time"

// 电源状态，取值与设备固件上报保持一致
const (
	PowerStatusUnknown     = "UNK"
	PowerStatusCharging    = "CHA"
	PowerStatusDischarging = "DIS"
	PowerStatusFull        = "FUL"
	PowerStatusNotCharging = "NOT"
)

// SyncEvent 一次中继握手的遥测快照
type SyncEvent struct {
	ID        int64
	ChannelID int64

	PowerSource string // AC/USB/无线/电池
	PowerStatus string
	PowerLevel  int // 电量百分比
	NetworkType string
	AppVersion  string

	// 本次握手中各方向命令的数量
	PendingCount  int
	RetryCount    int
	IncomingCount int
	OutgoingCount int

	// 与上一次握手的间隔秒数，在下一条事件创建时回填
	Lifetime int64

	CreatedOn time.Time
}

// IsCharging 设备是否在充电
func (e SyncEvent) IsCharging() bool {
	return e.PowerStatus == PowerStatusCharging || e.PowerStatus == PowerStatusFull
}
