package redis

import (
	"gitee.com/flycash/courier-platform/internal/pkg/redis/metrics"
	"github.com/redis/go-redis/v9"
)

// WithTracing 给客户端挂上链路追踪钩子
func WithTracing(client *redis.Client) *redis.Client {
	client.AddHook(newTracingHook())
	return client
}

// WithMetrics 给客户端挂上指标收集钩子
func WithMetrics(client *redis.Client) *redis.Client {
	client.AddHook(metrics.NewMetricsHook())
	return client
}
