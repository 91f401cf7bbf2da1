package sync

import (
	"context"
	"time"

	"gitee.com/flycash/courier-platform/internal/pkg/loopjob"
	"gitee.com/flycash/courier-platform/internal/repository"
	"github.com/gotomicro/ego/core/elog"
	"github.com/meoying/dlock-go"
)

const (
	trimInterval = time.Hour

	// 遥测历史的保留窗口，窗口之外每个渠道只留最近一条
	trimRetention = 30 * 24 * time.Hour
)

// TrimTask 周期性清理过期的同步事件历史
type TrimTask struct {
	dclient dlock.Client
	repo    repository.SyncEventRepository
	logger  *elog.Component
}

func NewTrimTask(dclient dlock.Client, repo repository.SyncEventRepository) *TrimTask {
	return &TrimTask{
		dclient: dclient,
		repo:    repo,
		logger:  elog.DefaultLogger,
	}
}

func (t *TrimTask) Start(ctx context.Context) {
	const key = "sync_event_trim"
	lj := loopjob.NewInfiniteLoop(t.dclient, t.trim, key, trimInterval)
	lj.Run(ctx)
}

func (t *TrimTask) trim(ctx context.Context) error {
	trimmed, err := t.repo.TrimOld(ctx, time.Now().Add(-trimRetention))
	if err != nil {
		return err
	}
	if trimmed > 0 {
		t.logger.Info("清理同步事件历史", elog.Int64("trimmed", trimmed))
	}
	return nil
}
