package ioc

import (
	redishook "gitee.com/flycash/courier-platform/internal/pkg/redis"
	"github.com/gotomicro/ego/core/econf"
	"github.com/meoying/dlock-go"
	dlockRedis "github.com/meoying/dlock-go/redis"
	"github.com/redis/go-redis/v9"
)

func InitRedisClient() *redis.Client {
	type Config struct {
		Addr string
	}
	var cfg Config
	err := econf.UnmarshalKey("redis", &cfg)
	if err != nil {
		panic(err)
	}
	cmd := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	cmd = redishook.WithTracing(cmd)
	cmd = redishook.WithMetrics(cmd)
	return cmd
}

func InitDlockClient(redisClient redis.Cmdable) dlock.Client {
	return dlockRedis.NewClient(redisClient)
}
