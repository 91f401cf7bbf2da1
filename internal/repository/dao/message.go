package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/courier-platform/internal/errs"
	"gorm.io/gorm"

	"github.com/ego-component/egorm"
)

const maxSendAttempts = 3

// 已下发给设备但一直没有回执的消息，超过这个窗口重新参与下发
const wiredRetryWindow = 5 * time.Minute

type MsgDAO interface {
	Create(ctx context.Context, data Msg) (Msg, error)
	GetByID(ctx context.Context, id int64) (Msg, error)

	// UpdateStatus 按ID更新消息状态，未知ID返回 ErrMsgNotFound
	UpdateStatus(ctx context.Context, id int64, status string) error
	// SetTopUp 记录吸收本条消息计费的额度
	SetTopUp(ctx context.Context, id, topUpID int64) error
	// MarkErrored 增加错误计数，超过上限转为彻底失败
	MarkErrored(ctx context.Context, id int64, nextAttempt time.Time) error
	// MarkQueued 批量记录入队时间并置为已入队
	MarkQueued(ctx context.Context, ids []int64, queuedOn time.Time) error

	// GetQueuedForChannel 渠道上已入队未确认的出站消息，时间序。
	// 含下发后长时间没有回执的消息，设备在发送前崩溃时由此重投
	GetQueuedForChannel(ctx context.Context, channelID int64, limit int) ([]Msg, error)
	// FailChannelMsgs 渠道释放时把在途消息置为失败
	FailChannelMsgs(ctx context.Context, channelID int64) (int64, error)

	// StuckChannelIDs 有积压出站消息的渠道：卡在队列中超过下限但不满上限
	StuckChannelIDs(ctx context.Context, olderThan, youngerThan time.Time) ([]int64, error)
	// LastOutgoingSent 渠道最近一次成功发出的时间，毫秒，没有则为 0
	LastOutgoingSent(ctx context.Context, channelID int64) (int64, error)
}

// Msg 消息表
type Msg struct {
	ID           int64  `gorm:"primaryKey;comment:'雪花算法ID'"`
	UUID         string `gorm:"type:CHAR(36);comment:'消息UUID'"`
	OrgID        int64  `gorm:"type:BIGINT;NOT NULL;index:idx_org"`
	ChannelID    int64  `gorm:"type:BIGINT;NOT NULL;index:idx_channel_status,priority:1"`
	ContactID    int64  `gorm:"type:BIGINT;NOT NULL"`
	ContactURNID int64  `gorm:"type:BIGINT;NOT NULL"`

	URN     string `gorm:"type:VARCHAR(255);NOT NULL;comment:'目的地址'"`
	URNAuth string `gorm:"type:VARCHAR(255)"`

	Text        string `gorm:"type:TEXT;NOT NULL"`
	Attachments string `gorm:"type:TEXT;comment:'附件，JSON数组'"`
	Metadata    string `gorm:"type:TEXT;comment:'元数据，JSON对象'"`

	Direction    string `gorm:"type:ENUM('I','O');NOT NULL"`
	Status       string `gorm:"type:ENUM('P','Q','W','S','D','E','F','H');NOT NULL;DEFAULT:'P';index:idx_channel_status,priority:2"`
	HighPriority bool   `gorm:"NOT NULL;DEFAULT:0"`
	ErrorCount   int    `gorm:"type:INT;NOT NULL;DEFAULT:0"`

	ResponseToID         int64  `gorm:"type:BIGINT;comment:'所回复的消息'"`
	ResponseToExternalID string `gorm:"type:VARCHAR(255)"`
	ExternalID           string `gorm:"type:VARCHAR(255);comment:'供应商侧消息ID'"`

	TopUpID int64 `gorm:"type:BIGINT;comment:'计费归属，0为未分配'"`

	CreatedOn   int64 `gorm:"NOT NULL;index:idx_created"`
	ModifiedOn  int64 `gorm:"NOT NULL"`
	QueuedOn    int64
	SentOn      int64
	NextAttempt int64
}

func (Msg) TableName() string {
	return "msgs"
}

type msgDAO struct {
	db *egorm.Component
}

// NewMsgDAO 创建消息DAO实例
func NewMsgDAO(db *egorm.Component) MsgDAO {
	return &msgDAO{db: db}
}

func (d *msgDAO) Create(ctx context.Context, data Msg) (Msg, error) {
	now := time.Now().UnixMilli()
	if data.CreatedOn == 0 {
		data.CreatedOn = now
	}
	data.ModifiedOn = now
	if err := d.db.WithContext(ctx).Create(&data).Error; err != nil {
		return Msg{}, err
	}
	return data, nil
}

func (d *msgDAO) GetByID(ctx context.Context, id int64) (Msg, error) {
	var m Msg
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Msg{}, fmt.Errorf("%w: id = %d", errs.ErrMsgNotFound, id)
		}
		return Msg{}, err
	}
	return m, nil
}

func (d *msgDAO) UpdateStatus(ctx context.Context, id int64, status string) error {
	now := time.Now().UnixMilli()
	updates := map[string]any{
		"status":      status,
		"modified_on": now,
	}
	if status == "S" || status == "D" {
		updates["sent_on"] = gorm.Expr("IF(sent_on = 0 OR sent_on IS NULL, ?, sent_on)", now)
	}
	res := d.db.WithContext(ctx).Model(&Msg{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id = %d", errs.ErrMsgNotFound, id)
	}
	return nil
}

func (d *msgDAO) SetTopUp(ctx context.Context, id, topUpID int64) error {
	res := d.db.WithContext(ctx).Model(&Msg{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"top_up_id":   topUpID,
			"modified_on": time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id = %d", errs.ErrMsgNotFound, id)
	}
	return nil
}

func (d *msgDAO) MarkErrored(ctx context.Context, id int64, nextAttempt time.Time) error {
	now := time.Now().UnixMilli()
	return d.db.WithContext(ctx).Model(&Msg{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"error_count":  gorm.Expr("error_count + 1"),
			"status":       gorm.Expr("IF(error_count >= ?, 'F', 'E')", maxSendAttempts),
			"next_attempt": nextAttempt.UnixMilli(),
			"modified_on":  now,
		}).Error
}

func (d *msgDAO) MarkQueued(ctx context.Context, ids []int64, queuedOn time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Model(&Msg{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":      "Q",
			"queued_on":   queuedOn.UnixMilli(),
			"modified_on": time.Now().UnixMilli(),
		}).Error
}

func (d *msgDAO) GetQueuedForChannel(ctx context.Context, channelID int64, limit int) ([]Msg, error) {
	var msgs []Msg
	staleBefore := time.Now().Add(-wiredRetryWindow).UnixMilli()
	err := d.db.WithContext(ctx).
		Where("channel_id = ? AND direction = 'O' AND (status IN ('P', 'Q', 'E') OR (status = 'W' AND modified_on < ?))",
			channelID, staleBefore).
		Order("created_on ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (d *msgDAO) FailChannelMsgs(ctx context.Context, channelID int64) (int64, error) {
	res := d.db.WithContext(ctx).Model(&Msg{}).
		Where("channel_id = ? AND direction = 'O' AND status IN ('P', 'Q', 'E', 'W')", channelID).
		Updates(map[string]any{
			"status":      "F",
			"modified_on": time.Now().UnixMilli(),
		})
	return res.RowsAffected, res.Error
}

func (d *msgDAO) StuckChannelIDs(ctx context.Context, olderThan, youngerThan time.Time) ([]int64, error) {
	var ids []int64
	err := d.db.WithContext(ctx).Model(&Msg{}).
		Distinct("channel_id").
		Where("direction = 'O' AND status IN ('P', 'Q') AND created_on < ? AND created_on > ?",
			olderThan.UnixMilli(), youngerThan.UnixMilli()).
		Pluck("channel_id", &ids).Error
	return ids, err
}

func (d *msgDAO) LastOutgoingSent(ctx context.Context, channelID int64) (int64, error) {
	var sentOn int64
	err := d.db.WithContext(ctx).Model(&Msg{}).
		Select("COALESCE(MAX(sent_on), 0)").
		Where("channel_id = ? AND direction = 'O'", channelID).
		Scan(&sentOn).Error
	return sentOn, err
}
