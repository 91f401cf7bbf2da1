package ioc

import (
	"context"

	alertevt "gitee.com/flycash/courier-platform/internal/event/alert"
	alertsvc "gitee.com/flycash/courier-platform/internal/service/alert"
	syncsvc "gitee.com/flycash/courier-platform/internal/service/sync"
)

type Task interface {
	Start(ctx context.Context)
}

func InitTasks(t1 *alertsvc.SweepTask, t2 *syncsvc.TrimTask, t3 *alertevt.EmailConsumer) []Task {
	return []Task{
		t1,
		t2,
		t3,
	}
}
