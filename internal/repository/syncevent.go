package repository

import (
	"context"
	"errors"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/repository/dao"
	"gorm.io/gorm"
)

//go:generate mockgen -source=./syncevent.go -package=repomocks -destination=./mocks/syncevent.mock.go SyncEventRepository
type SyncEventRepository interface {
	Create(ctx context.Context, event domain.SyncEvent) (domain.SyncEvent, error)
	// GetLatest 渠道最近一条同步事件，不存在时布尔值为 false
	GetLatest(ctx context.Context, channelID int64) (domain.SyncEvent, bool, error)
	GetLatestByChannelIDs(ctx context.Context, channelIDs []int64) (map[int64]domain.SyncEvent, error)
	TrimOld(ctx context.Context, before time.Time) (int64, error)
	DeleteByChannel(ctx context.Context, channelID int64) error
}

type syncEventRepository struct {
	dao dao.SyncEventDAO
}

// NewSyncEventRepository 创建同步事件仓储实例
func NewSyncEventRepository(d dao.SyncEventDAO) SyncEventRepository {
	return &syncEventRepository{dao: d}
}

func (r *syncEventRepository) Create(ctx context.Context, event domain.SyncEvent) (domain.SyncEvent, error) {
	created, err := r.dao.Create(ctx, r.toEntity(event))
	if err != nil {
		return domain.SyncEvent{}, err
	}
	return r.toDomain(created), nil
}

func (r *syncEventRepository) GetLatest(ctx context.Context, channelID int64) (domain.SyncEvent, bool, error) {
	e, err := r.dao.GetLatest(ctx, channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SyncEvent{}, false, nil
		}
		return domain.SyncEvent{}, false, err
	}
	return r.toDomain(e), true, nil
}

func (r *syncEventRepository) GetLatestByChannelIDs(ctx context.Context, channelIDs []int64) (map[int64]domain.SyncEvent, error) {
	events, err := r.dao.GetLatestByChannelIDs(ctx, channelIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]domain.SyncEvent, len(events))
	for id, e := range events {
		out[id] = r.toDomain(e)
	}
	return out, nil
}

func (r *syncEventRepository) TrimOld(ctx context.Context, before time.Time) (int64, error) {
	return r.dao.TrimOld(ctx, before)
}

func (r *syncEventRepository) DeleteByChannel(ctx context.Context, channelID int64) error {
	return r.dao.DeleteByChannel(ctx, channelID)
}

func (r *syncEventRepository) toDomain(e dao.SyncEvent) domain.SyncEvent {
	return domain.SyncEvent{
		ID:            e.ID,
		ChannelID:     e.ChannelID,
		PowerSource:   e.PowerSource,
		PowerStatus:   e.PowerStatus,
		PowerLevel:    e.PowerLevel,
		NetworkType:   e.NetworkType,
		AppVersion:    e.AppVersion,
		PendingCount:  e.PendingCount,
		RetryCount:    e.RetryCount,
		IncomingCount: e.IncomingCount,
		OutgoingCount: e.OutgoingCount,
		Lifetime:      e.Lifetime,
		CreatedOn:     millisToTime(e.CreatedOn),
	}
}

func (r *syncEventRepository) toEntity(e domain.SyncEvent) dao.SyncEvent {
	return dao.SyncEvent{
		ID:            e.ID,
		ChannelID:     e.ChannelID,
		PowerSource:   e.PowerSource,
		PowerStatus:   e.PowerStatus,
		PowerLevel:    e.PowerLevel,
		NetworkType:   e.NetworkType,
		AppVersion:    e.AppVersion,
		PendingCount:  e.PendingCount,
		RetryCount:    e.RetryCount,
		IncomingCount: e.IncomingCount,
		OutgoingCount: e.OutgoingCount,
		Lifetime:      e.Lifetime,
		CreatedOn:     timeToMillis(e.CreatedOn),
	}
}
