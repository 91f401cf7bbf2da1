package dao

import (
	"context"
	"time"

	"github.com/ego-component/egorm"
)

type AlertDAO interface {
	Create(ctx context.Context, data Alert) (Alert, error)
	// GetOpen 渠道上某类型的打开中告警，没有时返回 gorm.ErrRecordNotFound
	GetOpen(ctx context.Context, channelID int64, alertType string) (Alert, error)
	// GetLastClosed 渠道上某类型最近关闭的一条告警
	GetLastClosed(ctx context.Context, channelID int64, alertType string) (Alert, error)
	// ListOpen 全部渠道上某类型的打开中告警
	ListOpen(ctx context.Context, alertType string) ([]Alert, error)
	// CloseOpen 关闭渠道上某类型的全部打开中告警，返回关闭条数
	CloseOpen(ctx context.Context, channelID int64, alertType string, endedOn time.Time) (int64, error)
	// CloseAllForChannel 渠道释放时关闭其全部告警
	CloseAllForChannel(ctx context.Context, channelID int64, endedOn time.Time) error
	// CreatedSince 渠道上某类型在给定时间之后是否创建过告警
	CreatedSince(ctx context.Context, channelID int64, alertType string, since time.Time) (bool, error)
}

// Alert 渠道健康告警表，ended_on 为 0 表示仍处于打开状态
type Alert struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ChannelID   int64  `gorm:"type:BIGINT;NOT NULL;index:idx_alert_channel_type,priority:1"`
	SyncEventID int64  `gorm:"type:BIGINT;comment:'触发电量告警的同步事件'"`
	Type        string `gorm:"type:ENUM('P','D','S');NOT NULL;index:idx_alert_channel_type,priority:2"`
	CreatedOn   int64  `gorm:"NOT NULL"`
	EndedOn     int64  `gorm:"NOT NULL;DEFAULT:0"`
}

func (Alert) TableName() string {
	return "alerts"
}

type alertDAO struct {
	db *egorm.Component
}

// NewAlertDAO 创建告警DAO实例
func NewAlertDAO(db *egorm.Component) AlertDAO {
	return &alertDAO{db: db}
}

func (d *alertDAO) Create(ctx context.Context, data Alert) (Alert, error) {
	if data.CreatedOn == 0 {
		data.CreatedOn = time.Now().UnixMilli()
	}
	if err := d.db.WithContext(ctx).Create(&data).Error; err != nil {
		return Alert{}, err
	}
	return data, nil
}

func (d *alertDAO) GetOpen(ctx context.Context, channelID int64, alertType string) (Alert, error) {
	var a Alert
	err := d.db.WithContext(ctx).
		Where("channel_id = ? AND type = ? AND ended_on = 0", channelID, alertType).
		Order("created_on DESC").
		First(&a).Error
	return a, err
}

func (d *alertDAO) GetLastClosed(ctx context.Context, channelID int64, alertType string) (Alert, error) {
	var a Alert
	err := d.db.WithContext(ctx).
		Where("channel_id = ? AND type = ? AND ended_on > 0", channelID, alertType).
		Order("ended_on DESC").
		First(&a).Error
	return a, err
}

func (d *alertDAO) ListOpen(ctx context.Context, alertType string) ([]Alert, error) {
	var alerts []Alert
	err := d.db.WithContext(ctx).
		Where("type = ? AND ended_on = 0", alertType).
		Find(&alerts).Error
	return alerts, err
}

func (d *alertDAO) CloseOpen(ctx context.Context, channelID int64, alertType string, endedOn time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Model(&Alert{}).
		Where("channel_id = ? AND type = ? AND ended_on = 0", channelID, alertType).
		Update("ended_on", endedOn.UnixMilli())
	return res.RowsAffected, res.Error
}

func (d *alertDAO) CloseAllForChannel(ctx context.Context, channelID int64, endedOn time.Time) error {
	return d.db.WithContext(ctx).Model(&Alert{}).
		Where("channel_id = ? AND ended_on = 0", channelID).
		Update("ended_on", endedOn.UnixMilli()).Error
}

func (d *alertDAO) CreatedSince(ctx context.Context, channelID int64, alertType string, since time.Time) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&Alert{}).
		Where("channel_id = ? AND type = ? AND created_on > ?", channelID, alertType, since.UnixMilli()).
		Count(&count).Error
	return count > 0, err
}
