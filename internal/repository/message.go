package repository

import (
	"context"
	"encoding/json"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	id "gitee.com/flycash/courier-platform/internal/pkg/id_generator"
	"gitee.com/flycash/courier-platform/internal/repository/dao"
	"github.com/ecodeclub/ekit/slice"
	"github.com/gofrs/uuid"
	"github.com/gotomicro/ego/core/elog"
)

//go:generate mockgen -source=./message.go -package=repomocks -destination=./mocks/message.mock.go MsgRepository
type MsgRepository interface {
	Create(ctx context.Context, msg domain.Msg) (domain.Msg, error)
	GetByID(ctx context.Context, id int64) (domain.Msg, error)

	UpdateStatus(ctx context.Context, id int64, status domain.MsgStatus) error
	SetTopUp(ctx context.Context, id, topUpID int64) error
	MarkErrored(ctx context.Context, id int64, nextAttempt time.Time) error
	MarkQueued(ctx context.Context, ids []int64, queuedOn time.Time) error

	GetQueuedForChannel(ctx context.Context, channelID int64, limit int) ([]domain.Msg, error)
	FailChannelMsgs(ctx context.Context, channelID int64) (int64, error)

	StuckChannelIDs(ctx context.Context, olderThan, youngerThan time.Time) ([]int64, error)
	LastOutgoingSent(ctx context.Context, channelID int64) (time.Time, error)
}

type msgRepository struct {
	dao    dao.MsgDAO
	idGen  *id.Generator
	logger *elog.Component
}

// NewMsgRepository 创建消息仓储实例
func NewMsgRepository(d dao.MsgDAO, idGen *id.Generator) MsgRepository {
	return &msgRepository{
		dao:    d,
		idGen:  idGen,
		logger: elog.DefaultLogger,
	}
}

func (r *msgRepository) Create(ctx context.Context, msg domain.Msg) (domain.Msg, error) {
	if msg.ID == 0 {
		msg.ID = r.idGen.GenerateID(msg.OrgID, msg.URN)
	}
	if msg.UUID == "" {
		msgUUID, err := uuid.NewV4()
		if err != nil {
			return domain.Msg{}, err
		}
		msg.UUID = msgUUID.String()
	}
	created, err := r.dao.Create(ctx, r.toEntity(msg))
	if err != nil {
		return domain.Msg{}, err
	}
	return r.toDomain(created), nil
}

func (r *msgRepository) GetByID(ctx context.Context, id int64) (domain.Msg, error) {
	m, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Msg{}, err
	}
	return r.toDomain(m), nil
}

func (r *msgRepository) UpdateStatus(ctx context.Context, id int64, status domain.MsgStatus) error {
	return r.dao.UpdateStatus(ctx, id, string(status))
}

func (r *msgRepository) SetTopUp(ctx context.Context, id, topUpID int64) error {
	return r.dao.SetTopUp(ctx, id, topUpID)
}

func (r *msgRepository) MarkErrored(ctx context.Context, id int64, nextAttempt time.Time) error {
	return r.dao.MarkErrored(ctx, id, nextAttempt)
}

func (r *msgRepository) MarkQueued(ctx context.Context, ids []int64, queuedOn time.Time) error {
	return r.dao.MarkQueued(ctx, ids, queuedOn)
}

func (r *msgRepository) GetQueuedForChannel(ctx context.Context, channelID int64, limit int) ([]domain.Msg, error) {
	msgs, err := r.dao.GetQueuedForChannel(ctx, channelID, limit)
	if err != nil {
		return nil, err
	}
	return slice.Map(msgs, func(_ int, src dao.Msg) domain.Msg {
		return r.toDomain(src)
	}), nil
}

func (r *msgRepository) FailChannelMsgs(ctx context.Context, channelID int64) (int64, error) {
	return r.dao.FailChannelMsgs(ctx, channelID)
}

func (r *msgRepository) StuckChannelIDs(ctx context.Context, olderThan, youngerThan time.Time) ([]int64, error) {
	return r.dao.StuckChannelIDs(ctx, olderThan, youngerThan)
}

func (r *msgRepository) LastOutgoingSent(ctx context.Context, channelID int64) (time.Time, error) {
	sentOn, err := r.dao.LastOutgoingSent(ctx, channelID)
	if err != nil || sentOn == 0 {
		return time.Time{}, err
	}
	return time.UnixMilli(sentOn), nil
}

func (r *msgRepository) toDomain(m dao.Msg) domain.Msg {
	var attachmentStrs []string
	if m.Attachments != "" {
		if err := json.Unmarshal([]byte(m.Attachments), &attachmentStrs); err != nil {
			r.logger.Warn("解析消息附件失败", elog.FieldErr(err))
		}
	}
	metadata := map[string]any{}
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			r.logger.Warn("解析消息元数据失败", elog.FieldErr(err))
		}
	}
	return domain.Msg{
		ID:           m.ID,
		UUID:         m.UUID,
		OrgID:        m.OrgID,
		ChannelID:    m.ChannelID,
		ContactID:    m.ContactID,
		ContactURNID: m.ContactURNID,
		URN:          m.URN,
		URNAuth:      m.URNAuth,
		Text:         m.Text,
		Attachments: slice.Map(attachmentStrs, func(_ int, src string) domain.Attachment {
			return domain.ParseAttachment(src)
		}),
		Metadata:             metadata,
		Direction:            domain.MsgDirection(m.Direction),
		Status:               domain.MsgStatus(m.Status),
		HighPriority:         m.HighPriority,
		ErrorCount:           m.ErrorCount,
		ResponseToID:         m.ResponseToID,
		ResponseToExternalID: m.ResponseToExternalID,
		ExternalID:           m.ExternalID,
		TopUpID:              m.TopUpID,
		CreatedOn:            millisToTime(m.CreatedOn),
		ModifiedOn:           millisToTime(m.ModifiedOn),
		QueuedOn:             millisToTime(m.QueuedOn),
		SentOn:               millisToTime(m.SentOn),
		NextAttempt:          millisToTime(m.NextAttempt),
	}
}

func (r *msgRepository) toEntity(msg domain.Msg) dao.Msg {
	attachments, err := json.Marshal(slice.Map(msg.Attachments, func(_ int, src domain.Attachment) string {
		return src.String()
	}))
	if err != nil {
		attachments = []byte("[]")
	}
	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}
	return dao.Msg{
		ID:                   msg.ID,
		UUID:                 msg.UUID,
		OrgID:                msg.OrgID,
		ChannelID:            msg.ChannelID,
		ContactID:            msg.ContactID,
		ContactURNID:         msg.ContactURNID,
		URN:                  msg.URN,
		URNAuth:              msg.URNAuth,
		Text:                 msg.Text,
		Attachments:          string(attachments),
		Metadata:             string(metadata),
		Direction:            string(msg.Direction),
		Status:               string(msg.Status),
		HighPriority:         msg.HighPriority,
		ErrorCount:           msg.ErrorCount,
		ResponseToID:         msg.ResponseToID,
		ResponseToExternalID: msg.ResponseToExternalID,
		ExternalID:           msg.ExternalID,
		TopUpID:              msg.TopUpID,
		CreatedOn:            timeToMillis(msg.CreatedOn),
		ModifiedOn:           timeToMillis(msg.ModifiedOn),
		QueuedOn:             timeToMillis(msg.QueuedOn),
		SentOn:               timeToMillis(msg.SentOn),
		NextAttempt:          timeToMillis(msg.NextAttempt),
	}
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
