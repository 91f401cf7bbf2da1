package courier

import (
	"context"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/pkg/courier"
	"gitee.com/flycash/courier-platform/internal/repository"
	"github.com/gotomicro/ego/core/elog"
)

//go:generate mockgen -source=./courier.go -package=couriermocks -destination=./mocks/courier.mock.go Service
type Service interface {
	// Enqueue 把一批同渠道的出站消息压平成任务快照后入队。
	// 入队失败原样上抛，由调用方决定重试，这里不做兜底
	Enqueue(ctx context.Context, channel domain.Channel, msgs []domain.Msg, highPriority bool) error
	// FlushBacklog 把渠道上滞留的待发消息重新入队
	FlushBacklog(ctx context.Context, channel domain.Channel, limit int) (int, error)
}

type service struct {
	queue   *courier.Queue
	msgRepo repository.MsgRepository
	logger  *elog.Component
}

func NewService(queue *courier.Queue, msgRepo repository.MsgRepository) Service {
	return &service{
		queue:   queue,
		msgRepo: msgRepo,
		logger:  elog.DefaultLogger,
	}
}

func (s *service) Enqueue(ctx context.Context, channel domain.Channel, msgs []domain.Msg, highPriority bool) error {
	if len(msgs) == 0 {
		return nil
	}

	tasks := make([]courier.Task, 0, len(msgs))
	ids := make([]int64, 0, len(msgs))
	for i := range msgs {
		msgs[i].ChannelUUID = channel.UUID
		tasks = append(tasks, courier.Serialize(msgs[i]))
		ids = append(ids, msgs[i].ID)
	}

	if err := s.queue.Push(ctx, channel, tasks, highPriority); err != nil {
		return err
	}

	// 快照已在队列上，状态更新失败只会导致重复入队，投递侧按ID幂等
	if err := s.msgRepo.MarkQueued(ctx, ids, time.Now()); err != nil {
		s.logger.Warn("更新消息入队状态失败",
			elog.FieldErr(err),
			elog.Any("ids", ids))
	}
	return nil
}

func (s *service) FlushBacklog(ctx context.Context, channel domain.Channel, limit int) (int, error) {
	msgs, err := s.msgRepo.GetQueuedForChannel(ctx, channel.ID, limit)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	var high, low []domain.Msg
	for i := range msgs {
		if msgs[i].HighPriority {
			high = append(high, msgs[i])
		} else {
			low = append(low, msgs[i])
		}
	}
	if err := s.Enqueue(ctx, channel, high, true); err != nil {
		return 0, err
	}
	if err := s.Enqueue(ctx, channel, low, false); err != nil {
		return len(high), err
	}
	return len(high) + len(low), nil
}
