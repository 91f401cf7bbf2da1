package repository

import (
	"context"
	"errors"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/repository/dao"
	"gorm.io/gorm"
)

//go:generate mockgen -source=./alert.go -package=repomocks -destination=./mocks/alert.mock.go AlertRepository
type AlertRepository interface {
	Create(ctx context.Context, alert domain.Alert) (domain.Alert, error)
	// GetOpen 渠道上某类型的打开中告警，不存在时布尔值为 false
	GetOpen(ctx context.Context, channelID int64, alertType domain.AlertType) (domain.Alert, bool, error)
	// GetLastClosed 渠道上某类型最近关闭的一条告警，不存在时布尔值为 false
	GetLastClosed(ctx context.Context, channelID int64, alertType domain.AlertType) (domain.Alert, bool, error)
	ListOpen(ctx context.Context, alertType domain.AlertType) ([]domain.Alert, error)
	CloseOpen(ctx context.Context, channelID int64, alertType domain.AlertType, endedOn time.Time) (int64, error)
	CloseAllForChannel(ctx context.Context, channelID int64, endedOn time.Time) error
	CreatedSince(ctx context.Context, channelID int64, alertType domain.AlertType, since time.Time) (bool, error)
}

type alertRepository struct {
	dao dao.AlertDAO
}

// NewAlertRepository 创建告警仓储实例
func NewAlertRepository(d dao.AlertDAO) AlertRepository {
	return &alertRepository{dao: d}
}

func (r *alertRepository) Create(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	created, err := r.dao.Create(ctx, r.toEntity(alert))
	if err != nil {
		return domain.Alert{}, err
	}
	return r.toDomain(created), nil
}

func (r *alertRepository) GetOpen(ctx context.Context, channelID int64, alertType domain.AlertType) (domain.Alert, bool, error) {
	a, err := r.dao.GetOpen(ctx, channelID, alertType.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Alert{}, false, nil
		}
		return domain.Alert{}, false, err
	}
	return r.toDomain(a), true, nil
}

func (r *alertRepository) GetLastClosed(ctx context.Context, channelID int64, alertType domain.AlertType) (domain.Alert, bool, error) {
	a, err := r.dao.GetLastClosed(ctx, channelID, alertType.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Alert{}, false, nil
		}
		return domain.Alert{}, false, err
	}
	return r.toDomain(a), true, nil
}

func (r *alertRepository) ListOpen(ctx context.Context, alertType domain.AlertType) ([]domain.Alert, error) {
	alerts, err := r.dao.ListOpen(ctx, alertType.String())
	if err != nil {
		return nil, err
	}
	out := make([]domain.Alert, 0, len(alerts))
	for i := range alerts {
		out = append(out, r.toDomain(alerts[i]))
	}
	return out, nil
}

func (r *alertRepository) CloseOpen(ctx context.Context, channelID int64, alertType domain.AlertType, endedOn time.Time) (int64, error) {
	return r.dao.CloseOpen(ctx, channelID, alertType.String(), endedOn)
}

func (r *alertRepository) CloseAllForChannel(ctx context.Context, channelID int64, endedOn time.Time) error {
	return r.dao.CloseAllForChannel(ctx, channelID, endedOn)
}

func (r *alertRepository) CreatedSince(ctx context.Context, channelID int64, alertType domain.AlertType, since time.Time) (bool, error) {
	return r.dao.CreatedSince(ctx, channelID, alertType.String(), since)
}

func (r *alertRepository) toDomain(a dao.Alert) domain.Alert {
	return domain.Alert{
		ID:          a.ID,
		ChannelID:   a.ChannelID,
		SyncEventID: a.SyncEventID,
		Type:        domain.AlertType(a.Type),
		CreatedOn:   millisToTime(a.CreatedOn),
		EndedOn:     millisToTime(a.EndedOn),
	}
}

func (r *alertRepository) toEntity(a domain.Alert) dao.Alert {
	return dao.Alert{
		ID:          a.ID,
		ChannelID:   a.ChannelID,
		SyncEventID: a.SyncEventID,
		Type:        a.Type.String(),
		CreatedOn:   timeToMillis(a.CreatedOn),
		EndedOn:     timeToMillis(a.EndedOn),
	}
}
