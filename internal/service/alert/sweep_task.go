package alert

import (
	"context"
	"time"

	"gitee.com/flycash/courier-platform/internal/pkg/loopjob"
	"github.com/meoying/dlock-go"
)

const sweepInterval = time.Minute

// SweepTask 周期性跑告警规则，分布式锁保证集群里同一时刻只有一个实例在扫
type SweepTask struct {
	dclient dlock.Client
	svc     Service
}

func NewSweepTask(dclient dlock.Client, svc Service) *SweepTask {
	return &SweepTask{dclient: dclient, svc: svc}
}

func (t *SweepTask) Start(ctx context.Context) {
	const key = "channel_alert_sweep"
	lj := loopjob.NewInfiniteLoop(t.dclient, t.svc.Sweep, key, sweepInterval)
	lj.Run(ctx)
}
