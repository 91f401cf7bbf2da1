package repository

import (
	"context"
	"encoding/json"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/repository/cache/local"
	"gitee.com/flycash/courier-platform/internal/repository/dao"
	"github.com/ecodeclub/ekit/slice"
	"github.com/gotomicro/ego/core/elog"
)

//go:generate mockgen -source=./channel.go -package=repomocks -destination=./mocks/channel.mock.go ChannelRepository
type ChannelRepository interface {
	Create(ctx context.Context, channel domain.Channel) (domain.Channel, error)
	GetByID(ctx context.Context, id int64) (domain.Channel, error)
	// GetByUUID 同步握手热路径，带本地缓存
	GetByUUID(ctx context.Context, uuid string) (domain.Channel, error)
	GetByClaimCode(ctx context.Context, claimCode string) (domain.Channel, error)
	GetDelegates(ctx context.Context, parentID int64) ([]domain.Channel, error)
	ListActiveRelayers(ctx context.Context) ([]domain.Channel, error)

	MarkClaimed(ctx context.Context, channel domain.Channel, orgID int64) error
	UpdateDeviceIdentity(ctx context.Context, channel domain.Channel, fcmID, deviceUUID string) error
	UpdateLastSeen(ctx context.Context, channel domain.Channel, lastSeen time.Time) error
	Release(ctx context.Context, channel domain.Channel) error

	DependentFlowNames(ctx context.Context, channelID int64) ([]string, error)
}

type channelRepository struct {
	dao    dao.ChannelDAO
	cache  *local.ChannelCache
	logger *elog.Component
}

// NewChannelRepository 创建渠道仓储实例
func NewChannelRepository(d dao.ChannelDAO, c *local.ChannelCache) ChannelRepository {
	return &channelRepository{
		dao:    d,
		cache:  c,
		logger: elog.DefaultLogger,
	}
}

func (r *channelRepository) Create(ctx context.Context, channel domain.Channel) (domain.Channel, error) {
	created, err := r.dao.Create(ctx, r.toEntity(channel))
	if err != nil {
		return domain.Channel{}, err
	}
	return r.toDomain(created), nil
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (domain.Channel, error) {
	c, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Channel{}, err
	}
	return r.withDelegates(ctx, r.toDomain(c)), nil
}

func (r *channelRepository) GetByUUID(ctx context.Context, uuid string) (domain.Channel, error) {
	if ch, err := r.cache.Get(uuid); err == nil {
		return ch, nil
	}
	c, err := r.dao.GetByUUID(ctx, uuid)
	if err != nil {
		return domain.Channel{}, err
	}
	ch := r.withDelegates(ctx, r.toDomain(c))
	r.cache.Set(ch)
	return ch, nil
}

func (r *channelRepository) GetByClaimCode(ctx context.Context, claimCode string) (domain.Channel, error) {
	c, err := r.dao.GetByClaimCode(ctx, claimCode)
	if err != nil {
		return domain.Channel{}, err
	}
	return r.toDomain(c), nil
}

func (r *channelRepository) GetDelegates(ctx context.Context, parentID int64) ([]domain.Channel, error) {
	cs, err := r.dao.GetDelegates(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return slice.Map(cs, func(_ int, src dao.Channel) domain.Channel {
		return r.toDomain(src)
	}), nil
}

func (r *channelRepository) ListActiveRelayers(ctx context.Context) ([]domain.Channel, error) {
	cs, err := r.dao.ListActiveRelayers(ctx)
	if err != nil {
		return nil, err
	}
	return slice.Map(cs, func(_ int, src dao.Channel) domain.Channel {
		return r.toDomain(src)
	}), nil
}

func (r *channelRepository) MarkClaimed(ctx context.Context, channel domain.Channel, orgID int64) error {
	r.cache.Del(channel.UUID)
	return r.dao.MarkClaimed(ctx, channel.ID, orgID)
}

func (r *channelRepository) UpdateDeviceIdentity(ctx context.Context, channel domain.Channel, fcmID, deviceUUID string) error {
	r.cache.Del(channel.UUID)
	return r.dao.UpdateDeviceIdentity(ctx, channel.ID, fcmID, deviceUUID)
}

func (r *channelRepository) UpdateLastSeen(ctx context.Context, channel domain.Channel, lastSeen time.Time) error {
	// last_seen 不在缓存失效范围内，告警扫描直接读库
	return r.dao.UpdateLastSeen(ctx, channel.ID, lastSeen)
}

func (r *channelRepository) Release(ctx context.Context, channel domain.Channel) error {
	r.cache.Del(channel.UUID)
	return r.dao.Release(ctx, channel.ID)
}

func (r *channelRepository) DependentFlowNames(ctx context.Context, channelID int64) ([]string, error) {
	return r.dao.DependentFlowNames(ctx, channelID)
}

// withDelegates 挂上直接子渠道，失败只记日志不影响主流程
func (r *channelRepository) withDelegates(ctx context.Context, ch domain.Channel) domain.Channel {
	delegates, err := r.GetDelegates(ctx, ch.ID)
	if err != nil {
		r.logger.Warn("查询代理渠道失败",
			elog.Int64("channelID", ch.ID),
			elog.FieldErr(err))
		return ch
	}
	ch.Delegates = delegates
	return ch
}

func (r *channelRepository) toDomain(c dao.Channel) domain.Channel {
	var schemes []string
	if c.Schemes != "" {
		if err := json.Unmarshal([]byte(c.Schemes), &schemes); err != nil {
			r.logger.Warn("解析渠道地址类型失败", elog.FieldErr(err))
		}
	}
	config := map[string]string{}
	if c.Config != "" {
		if err := json.Unmarshal([]byte(c.Config), &config); err != nil {
			r.logger.Warn("解析渠道配置失败", elog.FieldErr(err))
		}
	}
	var lastSeen time.Time
	if c.LastSeen > 0 {
		lastSeen = time.UnixMilli(c.LastSeen)
	}
	return domain.Channel{
		ID:         c.ID,
		UUID:       c.UUID,
		OrgID:      c.OrgID,
		Type:       c.Type,
		Name:       c.Name,
		Address:    c.Address,
		Schemes:    schemes,
		Role:       domain.ChannelRole(c.Role),
		TPS:        c.TPS,
		Config:     config,
		Secret:     c.Secret,
		ClaimCode:  c.ClaimCode,
		FCMID:      c.FCMID,
		DeviceUUID: c.DeviceUUID,
		LastSeen:   lastSeen,
		ParentID:   c.ParentID,
		AlertEmail: c.AlertEmail,
		IsActive:   c.IsActive,
		CreatedBy:  c.CreatedBy,
	}
}

func (r *channelRepository) toEntity(ch domain.Channel) dao.Channel {
	schemes, err := json.Marshal(ch.Schemes)
	if err != nil {
		schemes = []byte("[]")
	}
	config, err := json.Marshal(ch.Config)
	if err != nil {
		config = []byte("{}")
	}
	var lastSeen int64
	if !ch.LastSeen.IsZero() {
		lastSeen = ch.LastSeen.UnixMilli()
	}
	return dao.Channel{
		ID:         ch.ID,
		UUID:       ch.UUID,
		OrgID:      ch.OrgID,
		Type:       ch.Type,
		Name:       ch.Name,
		Address:    ch.Address,
		Schemes:    string(schemes),
		Role:       int(ch.Role),
		TPS:        ch.TPS,
		Config:     string(config),
		Secret:     ch.Secret,
		ClaimCode:  ch.ClaimCode,
		FCMID:      ch.FCMID,
		DeviceUUID: ch.DeviceUUID,
		LastSeen:   lastSeen,
		ParentID:   ch.ParentID,
		AlertEmail: ch.AlertEmail,
		IsActive:   ch.IsActive,
		CreatedBy:  ch.CreatedBy,
	}
}
