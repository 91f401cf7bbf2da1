package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/errs"
	"gitee.com/flycash/courier-platform/internal/registry"
	"gitee.com/flycash/courier-platform/internal/repository"
	"github.com/gofrs/uuid"
	"github.com/gotomicro/ego/core/elog"
	"github.com/hashicorp/go-multierror"
)

const (
	secretLength    = 64
	claimCodeLength = 9
)

//go:generate mockgen -source=./channel.go -package=channelmocks -destination=./mocks/channel.mock.go Service
type Service interface {
	// Create 创建渠道，校验类型与地址类型后在供应商侧激活
	Create(ctx context.Context, channel domain.Channel) (domain.Channel, error)
	// Claim 业务方通过认领码认领一个中继渠道
	Claim(ctx context.Context, claimCode string, orgID int64) (domain.Channel, error)
	// Release 释放渠道：校验流程依赖，在供应商侧注销，
	// 随后级联清理代理渠道、未发出的消息、告警和同步历史
	Release(ctx context.Context, id int64) error

	GetByID(ctx context.Context, id int64) (domain.Channel, error)
	GetByUUID(ctx context.Context, channelUUID string) (domain.Channel, error)
	// GetDelegate 返回渠道上承担指定角色的生效端点
	GetDelegate(ctx context.Context, id int64, role domain.ChannelRole) (domain.Channel, error)
}

type service struct {
	repo      repository.ChannelRepository
	msgRepo   repository.MsgRepository
	alertRepo repository.AlertRepository
	syncRepo  repository.SyncEventRepository
	logger    *elog.Component
}

func NewService(
	repo repository.ChannelRepository,
	msgRepo repository.MsgRepository,
	alertRepo repository.AlertRepository,
	syncRepo repository.SyncEventRepository,
) Service {
	return &service{
		repo:      repo,
		msgRepo:   msgRepo,
		alertRepo: alertRepo,
		syncRepo:  syncRepo,
		logger:    elog.DefaultLogger,
	}
}

func (s *service) Create(ctx context.Context, channel domain.Channel) (domain.Channel, error) {
	desc, err := registry.Get(channel.Type)
	if err != nil {
		return domain.Channel{}, err
	}

	// 渠道声明的地址类型必须落在类型能力之内
	for _, scheme := range channel.Schemes {
		if !supports(desc.Schemes, scheme) {
			return domain.Channel{}, fmt.Errorf("%w: 类型 %s 不支持 %s",
				errs.ErrUnsupportedScheme, channel.Type, scheme)
		}
	}
	if len(channel.Schemes) == 0 {
		channel.Schemes = desc.Schemes
	}
	if channel.Role == 0 {
		channel.Role = desc.Roles
	}

	channelUUID, err := uuid.NewV4()
	if err != nil {
		return domain.Channel{}, fmt.Errorf("%w: %w", errs.ErrCreateChannelFailed, err)
	}
	channel.UUID = channelUUID.String()
	channel.IsActive = true

	// 中继渠道走设备扫码认领，创建时生成认证材料；
	// 供应商渠道创建即归属业务方，不需要认领码
	if desc.ClaimMode == registry.ClaimModeRelayer {
		channel.Secret = randomToken(secretLength)
		channel.ClaimCode = randomToken(claimCodeLength)
	}

	created, err := s.repo.Create(ctx, channel)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("%w: %w", errs.ErrCreateChannelFailed, err)
	}

	handler, err := registry.GetHandler(created.Type)
	if err != nil {
		return domain.Channel{}, err
	}
	if err := handler.Activate(ctx, created); err != nil {
		return domain.Channel{}, fmt.Errorf("%w: 供应商侧激活失败: %w", errs.ErrCreateChannelFailed, err)
	}
	return created, nil
}

func (s *service) Claim(ctx context.Context, claimCode string, orgID int64) (domain.Channel, error) {
	if orgID <= 0 {
		return domain.Channel{}, fmt.Errorf("%w: orgID = %d", errs.ErrInvalidParameter, orgID)
	}
	channel, err := s.repo.GetByClaimCode(ctx, strings.ToUpper(strings.TrimSpace(claimCode)))
	if err != nil {
		return domain.Channel{}, err
	}
	if channel.IsClaimed() {
		// 已被认领的认领码等同不存在，避免探测
		return domain.Channel{}, fmt.Errorf("%w: 认领码已失效", errs.ErrChannelNotFound)
	}
	if err := s.repo.MarkClaimed(ctx, channel, orgID); err != nil {
		return domain.Channel{}, err
	}
	channel.OrgID = orgID
	return channel, nil
}

func (s *service) Release(ctx context.Context, id int64) error {
	channel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if channel.IsReleased() {
		// 重复释放是无害的
		return nil
	}

	flows, err := s.repo.DependentFlowNames(ctx, id)
	if err != nil {
		return err
	}
	if len(flows) > 0 {
		return fmt.Errorf("%w: %s", errs.ErrChannelHasDependents, strings.Join(flows, ", "))
	}

	handler, err := registry.GetHandler(channel.Type)
	if err != nil {
		return err
	}
	if err := handler.Deactivate(ctx, channel); err != nil {
		// 供应商侧注销失败不阻断释放，记录后继续
		s.logger.Warn("供应商侧注销失败",
			elog.FieldErr(err),
			elog.Int64("channelID", id))
	}

	if err := s.repo.Release(ctx, channel); err != nil {
		return err
	}

	// 级联清理，单项失败不阻断其余项
	var merr *multierror.Error
	for _, d := range channel.Delegates {
		if rerr := s.Release(ctx, d.ID); rerr != nil {
			merr = multierror.Append(merr, fmt.Errorf("释放代理渠道 %d: %w", d.ID, rerr))
		}
	}
	if _, ferr := s.msgRepo.FailChannelMsgs(ctx, id); ferr != nil {
		merr = multierror.Append(merr, fmt.Errorf("废弃未发出消息: %w", ferr))
	}
	if aerr := s.alertRepo.CloseAllForChannel(ctx, id, time.Now()); aerr != nil {
		merr = multierror.Append(merr, fmt.Errorf("关闭遗留告警: %w", aerr))
	}
	if serr := s.syncRepo.DeleteByChannel(ctx, id); serr != nil {
		merr = multierror.Append(merr, fmt.Errorf("清空同步历史: %w", serr))
	}
	return merr.ErrorOrNil()
}

func (s *service) GetByID(ctx context.Context, id int64) (domain.Channel, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByUUID(ctx context.Context, channelUUID string) (domain.Channel, error) {
	return s.repo.GetByUUID(ctx, channelUUID)
}

func (s *service) GetDelegate(ctx context.Context, id int64, role domain.ChannelRole) (domain.Channel, error) {
	channel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Channel{}, err
	}
	return channel.GetDelegate(role), nil
}

func supports(schemes []string, scheme string) bool {
	for _, s := range schemes {
		if s == scheme {
			return true
		}
	}
	return false
}
