package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/courier-platform/internal/errs"
	"github.com/ego-component/egorm"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type ContactDAO interface {
	GetByID(ctx context.Context, id int64) (Contact, error)
	// GetOrCreateByURN 按地址解析联系人，不存在则连同地址一并创建
	GetOrCreateByURN(ctx context.Context, orgID, channelID int64, scheme, path string) (Contact, ContactURN, bool, error)
	// SetPreferredChannel 把地址的优先出站渠道指向给定渠道
	SetPreferredChannel(ctx context.Context, urnID, channelID int64) error
	// Unstop 把已退订的联系人恢复为活跃，记录操作者
	Unstop(ctx context.Context, contactID, userID int64) error
	UpdateLastSeen(ctx context.Context, contactID int64, lastSeen time.Time) error
}

// Contact 联系人表
type Contact struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UUID      string `gorm:"type:CHAR(36);NOT NULL;uniqueIndex:idx_contact_uuid"`
	OrgID     int64  `gorm:"type:BIGINT;NOT NULL;index:idx_contact_org"`
	Name      string `gorm:"type:VARCHAR(128)"`
	IsStopped bool   `gorm:"NOT NULL;DEFAULT:0"`
	StoppedBy int64  `gorm:"type:BIGINT;comment:'最近一次退订状态变更的操作者'"`
	LastSeen  int64
	Ctime     int64
	Utime     int64
}

func (Contact) TableName() string {
	return "contacts"
}

// ContactURN 联系人地址表
type ContactURN struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ContactID int64  `gorm:"type:BIGINT;NOT NULL;index:idx_urn_contact"`
	OrgID     int64  `gorm:"type:BIGINT;NOT NULL;uniqueIndex:idx_org_urn,priority:1"`
	ChannelID int64  `gorm:"type:BIGINT;comment:'优先出站渠道'"`
	Scheme    string `gorm:"type:VARCHAR(16);NOT NULL;uniqueIndex:idx_org_urn,priority:2"`
	Path      string `gorm:"type:VARCHAR(255);NOT NULL;uniqueIndex:idx_org_urn,priority:3"`
	Auth      string `gorm:"type:VARCHAR(255)"`
	Ctime     int64
	Utime     int64
}

func (ContactURN) TableName() string {
	return "contact_urns"
}

type contactDAO struct {
	db *egorm.Component
}

// NewContactDAO 创建联系人DAO实例
func NewContactDAO(db *egorm.Component) ContactDAO {
	return &contactDAO{db: db}
}

func (d *contactDAO) GetByID(ctx context.Context, id int64) (Contact, error) {
	var c Contact
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Contact{}, fmt.Errorf("%w: id = %d", errs.ErrContactNotFound, id)
		}
		return Contact{}, err
	}
	return c, nil
}

func (d *contactDAO) GetOrCreateByURN(ctx context.Context, orgID, channelID int64, scheme, path string) (Contact, ContactURN, bool, error) {
	var (
		contact Contact
		urn     ContactURN
		created bool
	)
	now := time.Now().UnixMilli()

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("org_id = ? AND scheme = ? AND path = ?", orgID, scheme, path).
			First(&urn).Error
		if err == nil {
			return tx.Where("id = ?", urn.ContactID).First(&contact).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		contactUUID, err := uuid.NewV4()
		if err != nil {
			return err
		}
		contact = Contact{
			UUID:     contactUUID.String(),
			OrgID:    orgID,
			LastSeen: now,
			Ctime:    now,
			Utime:    now,
		}
		if err := tx.Create(&contact).Error; err != nil {
			return err
		}

		urn = ContactURN{
			ContactID: contact.ID,
			OrgID:     orgID,
			ChannelID: channelID,
			Scheme:    scheme,
			Path:      path,
			Ctime:     now,
			Utime:     now,
		}
		if err := tx.Create(&urn).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return Contact{}, ContactURN{}, false, err
	}
	return contact, urn, created, nil
}

func (d *contactDAO) SetPreferredChannel(ctx context.Context, urnID, channelID int64) error {
	return d.db.WithContext(ctx).Model(&ContactURN{}).
		Where("id = ?", urnID).
		Updates(map[string]any{
			"channel_id": channelID,
			"utime":      time.Now().UnixMilli(),
		}).Error
}

func (d *contactDAO) Unstop(ctx context.Context, contactID, userID int64) error {
	return d.db.WithContext(ctx).Model(&Contact{}).
		Where("id = ? AND is_stopped = ?", contactID, true).
		Updates(map[string]any{
			"is_stopped": false,
			"stopped_by": userID,
			"utime":      time.Now().UnixMilli(),
		}).Error
}

func (d *contactDAO) UpdateLastSeen(ctx context.Context, contactID int64, lastSeen time.Time) error {
	return d.db.WithContext(ctx).Model(&Contact{}).
		Where("id = ?", contactID).
		Updates(map[string]any{
			"last_seen": lastSeen.UnixMilli(),
			"utime":     time.Now().UnixMilli(),
		}).Error
}
