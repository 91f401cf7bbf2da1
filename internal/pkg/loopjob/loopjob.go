package loopjob

import (
	"context"
	"errors"
	"time"

	"github.com/gotomicro/ego/core/elog"
	"github.com/meoying/dlock-go"
)

// 在没有分布式任务调度平台的情况下，用分布式锁保证同一时刻只有一个实例在跑周期任务

const defaultLockTimeout = time.Second * 3

// InfiniteLoop 抢到分布式锁后按固定间隔反复执行业务，直到 ctx 被取消
type InfiniteLoop struct {
	dclient  dlock.Client
	key      string
	interval time.Duration
	logger   *elog.Component
	biz      func(ctx context.Context) error
}

func NewInfiniteLoop(
	dclient dlock.Client,
	// 要执行的业务，ctx 被取消时整个循环退出
	biz func(ctx context.Context) error,
	key string,
	interval time.Duration,
) *InfiniteLoop {
	return &InfiniteLoop{
		dclient:  dclient,
		key:      key,
		interval: interval,
		logger:   elog.DefaultLogger.With(elog.String("key", key)),
		biz:      biz,
	}
}

// Run ctx 被取消时退出
func (l *InfiniteLoop) Run(ctx context.Context) {
	for {
		lock, err := l.dclient.NewLock(ctx, l.key, l.interval)
		if err != nil {
			l.logger.Error("初始化分布式锁失败，重试", elog.FieldErr(err))
			time.Sleep(l.interval)
			continue
		}

		lockCtx, cancel := context.WithTimeout(ctx, defaultLockTimeout)
		err = lock.Lock(lockCtx)
		cancel()
		if err != nil {
			// 没抢到锁，可能被别的实例持有，等下一轮
			time.Sleep(l.interval)
			continue
		}

		err = l.bizLoop(ctx, lock)
		if err != nil {
			l.logger.Error("执行任务失败", elog.FieldErr(err))
		}

		// 解锁要摆脱原 ctx，此时它可能已被取消
		unCtx, cancel := context.WithTimeout(context.Background(), defaultLockTimeout)
		//nolint:contextcheck // 原始 ctx 可能已被取消，但仍需尝试解锁
		unErr := lock.Unlock(unCtx)
		cancel()
		if unErr != nil {
			l.logger.Error("释放分布式锁失败", elog.FieldErr(unErr))
		}

		err = ctx.Err()
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			l.logger.Info("任务被取消，退出任务循环")
			return
		default:
			time.Sleep(l.interval)
		}
	}
}

// bizLoop 持锁期间按间隔执行业务，单次失败不中断循环，续约失败退出
func (l *InfiniteLoop) bizLoop(ctx context.Context, lock dlock.Lock) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		if err := l.biz(ctx); err != nil {
			l.logger.Error("单轮任务执行失败", elog.FieldErr(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		refreshCtx, cancel := context.WithTimeout(ctx, defaultLockTimeout)
		err := lock.Refresh(refreshCtx)
		cancel()
		if err != nil {
			return err
		}
	}
}
