package courier

import (
	_ "embed"
	"fmt"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/errs"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/context"
)

//go:embed lua/enqueue.lua
var enqueueScript string

const (
	// DefaultTPS 渠道未配置吞吐上限时的默认值
	DefaultTPS = 10

	// 队列类型，作为所有键的前缀
	queueType = "msgs"
)

// Queue 每渠道的出站消息队列。
// 每个渠道按 (队列类型, 渠道UUID, TPS) 建一组键：高低优先级各一个有序集合、
// 一个按秒分桶的吞吐计数器，外加全局活跃集合的成员资格。
// 入队和活跃集合的更新在服务端脚本里原子完成。
type Queue struct {
	cmd redis.Cmdable
}

// NewQueue 创建出站消息队列
func NewQueue(cmd redis.Cmdable) *Queue {
	return &Queue{cmd: cmd}
}

// Push 把一批同渠道的任务入队。
// 任务按入队时刻的时间序分值排序；当前秒内吞吐未超限时把渠道队列置为活跃，
// 超限则摘出活跃集合由消费方在下一秒重新发现。失败直接上抛，不在内部重试。
func (q *Queue) Push(ctx context.Context, channel domain.Channel, tasks []Task, highPriority bool) error {
	if len(tasks) == 0 {
		return nil
	}

	// 键空间按 tps-or-default 命名，限流判定按配置值，0 视为不限
	keyTPS := channel.TPS
	if keyTPS <= 0 {
		keyTPS = DefaultTPS
	}
	limit := channel.TPS
	if limit < 0 {
		limit = 0
	}

	queueKey := q.queueKey(channel.UUID, keyTPS, highPriority)
	member := q.member(channel.UUID, keyTPS)

	for i := range tasks {
		payload, err := tasks[i].Marshal()
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrEnqueueFailed, err)
		}

		now := time.Now()
		score := float64(now.UnixMicro()) / 1e6
		err = q.cmd.Eval(ctx, enqueueScript,
			[]string{queueKey, q.activeKey(), q.tpsKey(member, now)},
			member,
			payload,
			score,
			limit,
		).Err()
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrEnqueueFailed, err)
		}
	}
	return nil
}

// Active 返回当前有可投递任务的渠道队列成员
func (q *Queue) Active(ctx context.Context) ([]string, error) {
	return q.cmd.SMembers(ctx, q.activeKey()).Result()
}

// Size 返回指定渠道某一优先级队列的长度
func (q *Queue) Size(ctx context.Context, channel domain.Channel, highPriority bool) (int64, error) {
	keyTPS := channel.TPS
	if keyTPS <= 0 {
		keyTPS = DefaultTPS
	}
	return q.cmd.ZCard(ctx, q.queueKey(channel.UUID, keyTPS, highPriority)).Result()
}

// member 渠道队列在活跃集合中的成员名
func (q *Queue) member(channelUUID string, tps int) string {
	return fmt.Sprintf("%s:%s|%d", queueType, channelUUID, tps)
}

// queueKey 优先级队列键，高低优先级互不混排，消费方总是先排空高优先级
func (q *Queue) queueKey(channelUUID string, tps int, highPriority bool) string {
	priority := 0
	if highPriority {
		priority = 1
	}
	return fmt.Sprintf("%s/%d", q.member(channelUUID, tps), priority)
}

// tpsKey 当前秒的吞吐计数器键
func (q *Queue) tpsKey(member string, now time.Time) string {
	return fmt.Sprintf("%s:tps:%d", member, now.Unix())
}

// activeKey 全局活跃集合键
func (q *Queue) activeKey() string {
	return queueType + ":active"
}
