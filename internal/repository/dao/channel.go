package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/courier-platform/internal/errs"
	"github.com/ecodeclub/ekit/slice"
	"github.com/ego-component/egorm"
	"gorm.io/gorm"
)

type ChannelDAO interface {
	Create(ctx context.Context, data Channel) (Channel, error)
	GetByID(ctx context.Context, id int64) (Channel, error)
	GetByUUID(ctx context.Context, uuid string) (Channel, error)
	GetByClaimCode(ctx context.Context, claimCode string) (Channel, error)
	// GetDelegates 返回直接子渠道，代理树深度固定为 1
	GetDelegates(ctx context.Context, parentID int64) ([]Channel, error)
	// ListActiveRelayers 返回所有已认领且未释放的中继渠道
	ListActiveRelayers(ctx context.Context) ([]Channel, error)

	MarkClaimed(ctx context.Context, id, orgID int64) error
	UpdateDeviceIdentity(ctx context.Context, id int64, fcmID, deviceUUID string) error
	UpdateLastSeen(ctx context.Context, id int64, lastSeen time.Time) error

	// Release 软释放，清空认证材料。已释放的渠道重复释放是无操作
	Release(ctx context.Context, id int64) error

	// DependentFlowNames 返回仍引用该渠道的流程名
	DependentFlowNames(ctx context.Context, channelID int64) ([]string, error)
}

// Channel 渠道表
type Channel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UUID      string `gorm:"type:CHAR(36);NOT NULL;uniqueIndex:idx_channel_uuid;comment:'渠道唯一标识'"`
	OrgID     int64  `gorm:"type:BIGINT;index:idx_org;comment:'所属业务方，未认领为0'"`
	Type      string `gorm:"type:VARCHAR(4);NOT NULL;comment:'渠道类型编码'"`
	Name      string `gorm:"type:VARCHAR(64)"`
	Address   string `gorm:"type:VARCHAR(255);comment:'端点地址'"`
	Schemes   string `gorm:"type:VARCHAR(255);NOT NULL;comment:'支持的地址类型，JSON数组'"`
	Role      int    `gorm:"type:INT;NOT NULL;comment:'角色位掩码'"`
	TPS       int    `gorm:"type:INT;NOT NULL;DEFAULT:0;comment:'每秒吞吐上限，0为未配置'"`
	Config    string `gorm:"type:TEXT;comment:'供应商配置，JSON对象'"`
	Secret    string `gorm:"type:VARCHAR(64);index:idx_secret;comment:'中继签名密钥'"`
	ClaimCode string `gorm:"type:VARCHAR(16);index:idx_claim_code;comment:'一次性认领码'"`

	FCMID      string `gorm:"column:fcm_id;type:VARCHAR(255);comment:'推送注册ID'"`
	DeviceUUID string `gorm:"type:CHAR(36);comment:'设备UUID'"`
	LastSeen   int64  `gorm:"comment:'最近一次握手，毫秒'"`

	ParentID   int64  `gorm:"type:BIGINT;index:idx_parent;comment:'父渠道，代理渠道专用'"`
	AlertEmail string `gorm:"type:VARCHAR(255)"`
	IsActive   bool   `gorm:"NOT NULL;DEFAULT:1"`
	CreatedBy  int64  `gorm:"type:BIGINT;comment:'渠道归属用户'"`

	Ctime int64
	Utime int64
}

func (Channel) TableName() string {
	return "channels"
}

// FlowDependency 流程对渠道的引用，释放渠道前校验
type FlowDependency struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	FlowName  string `gorm:"type:VARCHAR(255);NOT NULL"`
	ChannelID int64  `gorm:"type:BIGINT;NOT NULL;index:idx_flow_dep_channel"`
	Ctime     int64
}

func (FlowDependency) TableName() string {
	return "flow_dependencies"
}

type channelDAO struct {
	db *egorm.Component
}

// NewChannelDAO 创建渠道DAO实例
func NewChannelDAO(db *egorm.Component) ChannelDAO {
	return &channelDAO{db: db}
}

func (d *channelDAO) Create(ctx context.Context, data Channel) (Channel, error) {
	now := time.Now().UnixMilli()
	data.Ctime, data.Utime = now, now
	if err := d.db.WithContext(ctx).Create(&data).Error; err != nil {
		return Channel{}, fmt.Errorf("%w: %w", errs.ErrCreateChannelFailed, err)
	}
	return data, nil
}

func (d *channelDAO) GetByID(ctx context.Context, id int64) (Channel, error) {
	var c Channel
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return Channel{}, d.notFound(err)
	}
	return c, nil
}

func (d *channelDAO) GetByUUID(ctx context.Context, uuid string) (Channel, error) {
	var c Channel
	err := d.db.WithContext(ctx).Where("uuid = ?", uuid).First(&c).Error
	if err != nil {
		return Channel{}, d.notFound(err)
	}
	return c, nil
}

func (d *channelDAO) GetByClaimCode(ctx context.Context, claimCode string) (Channel, error) {
	var c Channel
	err := d.db.WithContext(ctx).
		Where("claim_code = ? AND is_active = ?", claimCode, true).
		First(&c).Error
	if err != nil {
		return Channel{}, d.notFound(err)
	}
	return c, nil
}

func (d *channelDAO) GetDelegates(ctx context.Context, parentID int64) ([]Channel, error) {
	var cs []Channel
	err := d.db.WithContext(ctx).
		Where("parent_id = ? AND is_active = ?", parentID, true).
		Find(&cs).Error
	return cs, err
}

func (d *channelDAO) ListActiveRelayers(ctx context.Context) ([]Channel, error) {
	var cs []Channel
	err := d.db.WithContext(ctx).
		Where("type = ? AND is_active = ? AND org_id > 0", "A", true).
		Find(&cs).Error
	return cs, err
}

func (d *channelDAO) MarkClaimed(ctx context.Context, id, orgID int64) error {
	return d.db.WithContext(ctx).Model(&Channel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"org_id": orgID,
			"utime":  time.Now().UnixMilli(),
		}).Error
}

func (d *channelDAO) UpdateDeviceIdentity(ctx context.Context, id int64, fcmID, deviceUUID string) error {
	return d.db.WithContext(ctx).Model(&Channel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"fcm_id":      fcmID,
			"device_uuid": deviceUUID,
			"utime":       time.Now().UnixMilli(),
		}).Error
}

func (d *channelDAO) UpdateLastSeen(ctx context.Context, id int64, lastSeen time.Time) error {
	return d.db.WithContext(ctx).Model(&Channel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_seen": lastSeen.UnixMilli(),
			"utime":     time.Now().UnixMilli(),
		}).Error
}

func (d *channelDAO) Release(ctx context.Context, id int64) error {
	return d.db.WithContext(ctx).Model(&Channel{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":  false,
			"secret":     "",
			"claim_code": "",
			"utime":      time.Now().UnixMilli(),
		}).Error
}

func (d *channelDAO) DependentFlowNames(ctx context.Context, channelID int64) ([]string, error) {
	var deps []FlowDependency
	err := d.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Find(&deps).Error
	if err != nil {
		return nil, err
	}
	return slice.Map(deps, func(_ int, src FlowDependency) string {
		return src.FlowName
	}), nil
}

func (d *channelDAO) notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w", errs.ErrChannelNotFound)
	}
	return err
}
