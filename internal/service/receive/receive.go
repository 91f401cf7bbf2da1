package receive

import (
	"context"
	"errors"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/errs"
	contactevt "gitee.com/flycash/courier-platform/internal/event/contact"
	"gitee.com/flycash/courier-platform/internal/repository"
	"github.com/gotomicro/ego/core/elog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var receivedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "courier",
	Name:      "msgs_received_total",
	Help:      "入站消息总数",
}, []string{"channel_type"})

//go:generate mockgen -source=./receive.go -package=receivemocks -destination=./mocks/receive.mock.go Service
type Service interface {
	// Process 执行入站消息落库后的各项旁路动作。
	// 入站消息永远不会因为旁路失败而被拒收，所以这里的错误只记录不上抛
	Process(ctx context.Context, channel domain.Channel, contact domain.Contact,
		urn domain.ContactURN, msg domain.Msg, newContact bool)
}

type service struct {
	topUpRepo   repository.TopUpRepository
	msgRepo     repository.MsgRepository
	contactRepo repository.ContactRepository
	producer    contactevt.EventProducer
	logger      *elog.Component
}

func NewService(
	topUpRepo repository.TopUpRepository,
	msgRepo repository.MsgRepository,
	contactRepo repository.ContactRepository,
	producer contactevt.EventProducer,
) Service {
	return &service{
		topUpRepo:   topUpRepo,
		msgRepo:     msgRepo,
		contactRepo: contactRepo,
		producer:    producer,
		logger:      elog.DefaultLogger,
	}
}

func (s *service) Process(ctx context.Context, channel domain.Channel, contact domain.Contact,
	urn domain.ContactURN, msg domain.Msg, newContact bool,
) {
	// 计费归属：还没分配额度的消息扣一个单位，并把吸收扣减的额度记到消息上。
	// 额度用尽只作记账告警，不影响收信
	if msg.TopUpID == 0 {
		topUpID, err := s.topUpRepo.Decrement(ctx, msg.OrgID)
		switch {
		case err == nil:
			if uerr := s.msgRepo.SetTopUp(ctx, msg.ID, topUpID); uerr != nil {
				s.logger.Warn("记录计费归属失败",
					elog.FieldErr(uerr),
					elog.Int64("msgID", msg.ID),
					elog.Int64("topUpID", topUpID))
			}
		case errors.Is(err, errs.ErrNoCredit):
			s.logger.Warn("业务方额度已用尽",
				elog.Int64("orgID", msg.OrgID))
		default:
			s.logger.Warn("扣减额度失败",
				elog.FieldErr(err),
				elog.Int64("orgID", msg.OrgID))
		}
	}

	// 来信渠道即回信首选渠道
	if urn.ChannelID != channel.ID && channel.SupportsScheme(urn.Scheme) {
		if err := s.contactRepo.SetPreferredChannel(ctx, urn.ID, channel.ID); err != nil {
			s.logger.Warn("更新首选渠道失败",
				elog.FieldErr(err),
				elog.Int64("urnID", urn.ID))
		}
	}

	// 主动来信视为重新订阅，操作者记为渠道归属用户
	if contact.IsStopped {
		if err := s.contactRepo.Unstop(ctx, contact.ID, channel.CreatedBy); err != nil {
			s.logger.Warn("恢复联系人失败",
				elog.FieldErr(err),
				elog.Int64("contactID", contact.ID))
		}
	}

	if err := s.contactRepo.UpdateLastSeen(ctx, contact.ID, time.Now()); err != nil {
		s.logger.Warn("更新联系人活跃时间失败",
			elog.FieldErr(err),
			elog.Int64("contactID", contact.ID))
	}

	receivedCounter.WithLabelValues(channel.Type).Inc()

	evtType := contactevt.TypeMsgReceived
	if newContact {
		evtType = contactevt.TypeNewContact
	}
	err := s.producer.Produce(ctx, contactevt.Event{
		OrgID:     msg.OrgID,
		ContactID: contact.ID,
		URNID:     urn.ID,
		ChannelID: channel.ID,
		MsgID:     msg.ID,
		Type:      evtType,
		CreatedOn: time.Now().UnixMilli(),
	})
	if err != nil {
		s.logger.Warn("发布联系人事件失败",
			elog.FieldErr(err),
			elog.Int64("contactID", contact.ID))
	}
}
