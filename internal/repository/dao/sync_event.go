package dao

import (
	"context"
	"errors"
	"time"

	"github.com/ego-component/egorm"
	"gorm.io/gorm"
)

type SyncEventDAO interface {
	// Create 创建同步事件，并回填该渠道上一条事件的 lifetime
	Create(ctx context.Context, data SyncEvent) (SyncEvent, error)
	// GetLatest 渠道最近一条同步事件，没有时返回 gorm.ErrRecordNotFound
	GetLatest(ctx context.Context, channelID int64) (SyncEvent, error)
	// GetLatestByChannelIDs 批量取各渠道最近一条同步事件
	GetLatestByChannelIDs(ctx context.Context, channelIDs []int64) (map[int64]SyncEvent, error)
	// TrimOld 清掉保留窗口之前的历史，每个渠道只留最近一条
	TrimOld(ctx context.Context, before time.Time) (int64, error)
	// DeleteByChannel 渠道释放时清空其同步历史
	DeleteByChannel(ctx context.Context, channelID int64) error
}

// SyncEvent 同步事件表
type SyncEvent struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	ChannelID int64 `gorm:"type:BIGINT;NOT NULL;index:idx_sync_channel_created,priority:1"`

	PowerSource string `gorm:"type:VARCHAR(8)"`
	PowerStatus string `gorm:"type:VARCHAR(8)"`
	PowerLevel  int    `gorm:"type:INT"`
	NetworkType string `gorm:"type:VARCHAR(16)"`
	AppVersion  string `gorm:"type:VARCHAR(32)"`

	PendingCount  int `gorm:"type:INT;NOT NULL;DEFAULT:0"`
	RetryCount    int `gorm:"type:INT;NOT NULL;DEFAULT:0"`
	IncomingCount int `gorm:"type:INT;NOT NULL;DEFAULT:0"`
	OutgoingCount int `gorm:"type:INT;NOT NULL;DEFAULT:0"`

	Lifetime  int64 `gorm:"NOT NULL;DEFAULT:0;comment:'与上一次握手的间隔秒数'"`
	CreatedOn int64 `gorm:"NOT NULL;index:idx_sync_channel_created,priority:2"`
}

func (SyncEvent) TableName() string {
	return "sync_events"
}

type syncEventDAO struct {
	db *egorm.Component
}

// NewSyncEventDAO 创建同步事件DAO实例
func NewSyncEventDAO(db *egorm.Component) SyncEventDAO {
	return &syncEventDAO{db: db}
}

func (d *syncEventDAO) Create(ctx context.Context, data SyncEvent) (SyncEvent, error) {
	if data.CreatedOn == 0 {
		data.CreatedOn = time.Now().UnixMilli()
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 回填正好发生一次：新事件落库的同一事务里补上前一条的间隔
		var prev SyncEvent
		err := tx.Where("channel_id = ?", data.ChannelID).
			Order("created_on DESC").
			First(&prev).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			const millisPerSecond = 1000
			lifetime := (data.CreatedOn - prev.CreatedOn) / millisPerSecond
			if uerr := tx.Model(&SyncEvent{}).
				Where("id = ?", prev.ID).
				Update("lifetime", lifetime).Error; uerr != nil {
				return uerr
			}
		}
		return tx.Create(&data).Error
	})
	if err != nil {
		return SyncEvent{}, err
	}
	return data, nil
}

func (d *syncEventDAO) GetLatest(ctx context.Context, channelID int64) (SyncEvent, error) {
	var e SyncEvent
	err := d.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_on DESC").
		First(&e).Error
	return e, err
}

func (d *syncEventDAO) GetLatestByChannelIDs(ctx context.Context, channelIDs []int64) (map[int64]SyncEvent, error) {
	if len(channelIDs) == 0 {
		return map[int64]SyncEvent{}, nil
	}
	var events []SyncEvent
	err := d.db.WithContext(ctx).
		Where("channel_id IN ?", channelIDs).
		Order("created_on ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	// 按时间升序覆盖，留下的就是各渠道最新一条
	out := make(map[int64]SyncEvent, len(channelIDs))
	for i := range events {
		out[events[i].ChannelID] = events[i]
	}
	return out, nil
}

func (d *syncEventDAO) TrimOld(ctx context.Context, before time.Time) (int64, error) {
	// 子查询找出每个渠道的最新一条，其余过期历史删除
	res := d.db.WithContext(ctx).
		Where("created_on < ? AND id NOT IN (?)",
			before.UnixMilli(),
			d.db.Model(&SyncEvent{}).Select("MAX(id)").Group("channel_id"),
		).
		Delete(&SyncEvent{})
	return res.RowsAffected, res.Error
}

func (d *syncEventDAO) DeleteByChannel(ctx context.Context, channelID int64) error {
	return d.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Delete(&SyncEvent{}).Error
}
