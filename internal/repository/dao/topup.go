package dao

import (
	"context"
	"fmt"
	"time"

	"gitee.com/flycash/courier-platform/internal/errs"
	"github.com/ego-component/egorm"
	"gorm.io/gorm"
)

type TopUpDAO interface {
	// Decrement 从业务方最早到期且有余量的一笔额度里扣一个单位，
	// 返回吸收这次扣减的额度ID，没有可用额度时返回 ErrNoCredit
	Decrement(ctx context.Context, orgID int64) (int64, error)
}

// TopUp 额度表
type TopUp struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	OrgID   int64 `gorm:"type:BIGINT;NOT NULL;index:idx_topup_org;comment:'所属业务方'"`
	Credits int64 `gorm:"type:BIGINT;NOT NULL;comment:'总额度'"`
	Used    int64 `gorm:"type:BIGINT;NOT NULL;DEFAULT:0;comment:'已使用'"`
	// 到期时间戳，毫秒
	ExpiresOn int64
	Utime     int64
	Ctime     int64
}

func (TopUp) TableName() string {
	return "top_ups"
}

type topUpDAO struct {
	db *egorm.Component
}

// NewTopUpDAO 创建额度DAO实例
func NewTopUpDAO(db *egorm.Component) TopUpDAO {
	return &topUpDAO{db: db}
}

func (d *topUpDAO) Decrement(ctx context.Context, orgID int64) (int64, error) {
	now := time.Now().UnixMilli()
	var topUpID int64
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t TopUp
		err := tx.Where("org_id = ? AND used < credits AND (expires_on = 0 OR expires_on > ?)", orgID, now).
			Order("expires_on ASC").
			First(&t).Error
		if err != nil {
			return fmt.Errorf("%w，原因: %w", errs.ErrNoCredit, err)
		}

		res := tx.Model(&TopUp{}).
			Where("id = ? AND used < credits", t.ID).
			Updates(map[string]any{
				"used":  gorm.Expr("`used` + 1"),
				"utime": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 并发用尽，当一次无额度处理，由上层决定是否重试
			return fmt.Errorf("%w", errs.ErrNoCredit)
		}
		topUpID = t.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return topUpID, nil
}
