package alert

import (
	"context"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	alertevt "gitee.com/flycash/courier-platform/internal/event/alert"
	"gitee.com/flycash/courier-platform/internal/repository"
	"github.com/gotomicro/ego/core/elog"
	"golang.org/x/sync/errgroup"
)

// 各告警规则的阈值
const (
	lowPowerLevel = 25

	disconnectedAfter = 30 * time.Minute

	backlogMinAge   = 30 * time.Minute
	backlogMaxAge   = 24 * time.Hour
	sendQuietWindow = 6 * time.Hour
	realertWindow   = 6 * time.Hour
)

//go:generate mockgen -source=./alert.go -package=alertmocks -destination=./mocks/alert.mock.go Service
type Service interface {
	// Sweep 跑一轮全部告警规则。三类规则彼此独立，另起协程并行评估，
	// 任一规则失败不影响其余规则本轮的推进
	Sweep(ctx context.Context) error
}

type service struct {
	channelRepo repository.ChannelRepository
	syncRepo    repository.SyncEventRepository
	alertRepo   repository.AlertRepository
	msgRepo     repository.MsgRepository
	producer    alertevt.EventProducer
	logger      *elog.Component
}

func NewService(
	channelRepo repository.ChannelRepository,
	syncRepo repository.SyncEventRepository,
	alertRepo repository.AlertRepository,
	msgRepo repository.MsgRepository,
	producer alertevt.EventProducer,
) Service {
	return &service{
		channelRepo: channelRepo,
		syncRepo:    syncRepo,
		alertRepo:   alertRepo,
		msgRepo:     msgRepo,
		producer:    producer,
		logger:      elog.DefaultLogger,
	}
}

func (s *service) Sweep(ctx context.Context) error {
	relayers, err := s.channelRepo.ListActiveRelayers(ctx)
	if err != nil {
		return err
	}

	var eg errgroup.Group
	eg.Go(func() error {
		return s.sweepPower(ctx, relayers)
	})
	eg.Go(func() error {
		return s.sweepDisconnected(ctx, relayers)
	})
	eg.Go(func() error {
		return s.sweepBacklog(ctx)
	})
	return eg.Wait()
}

// sweepPower 电量告警：最近一次遥测显示非充电且电量低于阈值时打开，
// 充电或充满后关闭。打开条件本身要求低电量，所以关闭不需要再校验开启时的电量
func (s *service) sweepPower(ctx context.Context, relayers []domain.Channel) error {
	ids := make([]int64, 0, len(relayers))
	byID := make(map[int64]domain.Channel, len(relayers))
	for _, c := range relayers {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	events, err := s.syncRepo.GetLatestByChannelIDs(ctx, ids)
	if err != nil {
		return err
	}

	for channelID, evt := range events {
		channel := byID[channelID]
		switch {
		case evt.IsCharging():
			s.close(ctx, channel, domain.AlertTypePower)
		case evt.PowerLevel < lowPowerLevel:
			s.open(ctx, channel, domain.Alert{
				ChannelID:   channelID,
				SyncEventID: evt.ID,
				Type:        domain.AlertTypePower,
			}, evt.PowerLevel)
		}
	}
	return nil
}

// sweepDisconnected 失联告警：中继渠道超过窗口没有握手时打开，
// last_seen 越过告警创建时间即视为恢复
func (s *service) sweepDisconnected(ctx context.Context, relayers []domain.Channel) error {
	now := time.Now()
	for _, channel := range relayers {
		if channel.LastSeen.IsZero() {
			// 从未握手过的渠道还在认领流程里，不告警
			continue
		}
		if now.Sub(channel.LastSeen) > disconnectedAfter {
			s.open(ctx, channel, domain.Alert{
				ChannelID: channel.ID,
				Type:      domain.AlertTypeDisconnected,
			}, 0)
			continue
		}
		open, ok, err := s.alertRepo.GetOpen(ctx, channel.ID, domain.AlertTypeDisconnected)
		if err != nil {
			s.logger.Warn("查询失联告警失败",
				elog.FieldErr(err),
				elog.Int64("channelID", channel.ID))
			continue
		}
		if ok && channel.LastSeen.After(open.CreatedOn) {
			s.close(ctx, channel, domain.AlertTypeDisconnected)
		}
	}
	return nil
}

// sweepBacklog 积压告警：渠道上有滞留超过下限但还没到放弃上限的待发消息，
// 且静默窗口内既没有成功发送也没有发过同类告警
func (s *service) sweepBacklog(ctx context.Context) error {
	now := time.Now()
	stuckIDs, err := s.msgRepo.StuckChannelIDs(ctx, now.Add(-backlogMinAge), now.Add(-backlogMaxAge))
	if err != nil {
		return err
	}

	stuck := make(map[int64]struct{}, len(stuckIDs))
	for _, id := range stuckIDs {
		stuck[id] = struct{}{}

		lastSent, err := s.msgRepo.LastOutgoingSent(ctx, id)
		if err != nil {
			s.logger.Warn("查询最近发送时间失败",
				elog.FieldErr(err),
				elog.Int64("channelID", id))
			continue
		}
		if !lastSent.IsZero() && now.Sub(lastSent) < sendQuietWindow {
			continue
		}

		raised, err := s.alertRepo.CreatedSince(ctx, id, domain.AlertTypeSMS, now.Add(-realertWindow))
		if err != nil {
			s.logger.Warn("查询告警历史失败",
				elog.FieldErr(err),
				elog.Int64("channelID", id))
			continue
		}
		if raised {
			continue
		}

		channel, err := s.channelRepo.GetByID(ctx, id)
		if err != nil {
			s.logger.Warn("查询渠道失败",
				elog.FieldErr(err),
				elog.Int64("channelID", id))
			continue
		}
		s.open(ctx, channel, domain.Alert{
			ChannelID: id,
			Type:      domain.AlertTypeSMS,
		}, 0)
	}

	// 积压消失后关闭遗留的打开中告警
	openAlerts, err := s.alertRepo.ListOpen(ctx, domain.AlertTypeSMS)
	if err != nil {
		return err
	}
	for _, a := range openAlerts {
		if _, ok := stuck[a.ChannelID]; ok {
			continue
		}
		channel, err := s.channelRepo.GetByID(ctx, a.ChannelID)
		if err != nil {
			s.logger.Warn("查询渠道失败",
				elog.FieldErr(err),
				elog.Int64("channelID", a.ChannelID))
			continue
		}
		s.close(ctx, channel, domain.AlertTypeSMS)
	}
	return nil
}

// open 在没有同类打开中告警时创建一条，并在落库之后发通知事件
func (s *service) open(ctx context.Context, channel domain.Channel, alert domain.Alert, powerLevel int) {
	_, exists, err := s.alertRepo.GetOpen(ctx, alert.ChannelID, alert.Type)
	if err != nil {
		s.logger.Warn("查询打开中告警失败",
			elog.FieldErr(err),
			elog.Int64("channelID", alert.ChannelID))
		return
	}
	if exists {
		return
	}

	created, err := s.alertRepo.Create(ctx, alert)
	if err != nil {
		s.logger.Warn("创建告警失败",
			elog.FieldErr(err),
			elog.Int64("channelID", alert.ChannelID))
		return
	}
	s.notify(ctx, channel, created, alertevt.ActionOpened, powerLevel)
}

// close 关闭渠道上某类型的全部打开中告警，确有关闭时发恢复事件
func (s *service) close(ctx context.Context, channel domain.Channel, alertType domain.AlertType) {
	closed, err := s.alertRepo.CloseOpen(ctx, channel.ID, alertType, time.Now())
	if err != nil {
		s.logger.Warn("关闭告警失败",
			elog.FieldErr(err),
			elog.Int64("channelID", channel.ID))
		return
	}
	if closed == 0 {
		return
	}
	s.notify(ctx, channel, domain.Alert{
		ChannelID: channel.ID,
		Type:      alertType,
	}, alertevt.ActionClosed, 0)
}

// notify 告警状态已经落库，通知走异步事件，失败只记录
func (s *service) notify(ctx context.Context, channel domain.Channel, alert domain.Alert, action string, powerLevel int) {
	err := s.producer.Produce(ctx, alertevt.Event{
		AlertID:     alert.ID,
		ChannelID:   channel.ID,
		ChannelUUID: channel.UUID,
		ChannelName: channel.Name,
		AlertType:   alert.Type.String(),
		Action:      action,
		AlertEmail:  channel.AlertEmail,
		PowerLevel:  powerLevel,
		CreatedOn:   time.Now().UnixMilli(),
	})
	if err != nil {
		s.logger.Warn("发布告警事件失败",
			elog.FieldErr(err),
			elog.Int64("channelID", channel.ID))
	}
}
