package metrics

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

var (
	// Redis命令计数器
	commandCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_commands_total",
			Help: "Total number of Redis commands executed",
		},
		[]string{"command", "status"},
	)

	// Redis命令执行时间
	commandDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "redis_command_duration_seconds",
			Help:       "Redis command execution time in seconds",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		},
		[]string{"command"},
	)

	// Redis连接计数器
	connectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_connections_total",
			Help: "Total number of Redis connections created",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		commandCounter,
		commandDuration,
		connectionCounter,
	)
}

// Hook 实现 redis.Hook 接口，为所有 Redis 操作收集指标。
// 入队脚本跑在热路径上，指标按命令名区分，EVALSHA 也能单独看到。
type Hook struct{}

// NewMetricsHook 创建 Redis 指标收集钩子
func NewMetricsHook() *Hook {
	return &Hook{}
}

const (
	successStatus = "success"
	errorStatus   = "error"
)

// DialHook 连接建立计数
func (h *Hook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		status := successStatus
		if err != nil {
			status = errorStatus
		}
		connectionCounter.WithLabelValues(status).Inc()
		return conn, err
	}
}

// ProcessHook 命令执行计数与耗时
func (h *Hook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		cmdName := cmd.Name()
		startTime := time.Now()

		err := next(ctx, cmd)

		commandDuration.WithLabelValues(cmdName).Observe(time.Since(startTime).Seconds())

		status := successStatus
		if err != nil && !errors.Is(err, redis.Nil) {
			status = errorStatus
		}
		commandCounter.WithLabelValues(cmdName, status).Inc()
		return err
	}
}

// ProcessPipelineHook 管道内逐条计数
func (h *Hook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		startTime := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(startTime).Seconds()

		status := successStatus
		if err != nil && !errors.Is(err, redis.Nil) {
			status = errorStatus
		}
		for _, cmd := range cmds {
			commandCounter.WithLabelValues(cmd.Name(), status).Inc()
			commandDuration.WithLabelValues(cmd.Name()).Observe(elapsed)
		}
		return err
	}
}
