package local

import (
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/repository/cache"
	ca "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("key not found")

const (
	// 同步握手是热路径，认证材料短缓存即可，设备身份更新时主动失效
	defaultExpiration = 30 * time.Second
	cleanupInterval   = time.Minute
)

// ChannelCache 渠道的进程内缓存，只在签名校验路径使用
type ChannelCache struct {
	c *ca.Cache
}

func NewChannelCache() *ChannelCache {
	return &ChannelCache{
		c: ca.New(defaultExpiration, cleanupInterval),
	}
}

func (l *ChannelCache) Get(uuid string) (domain.Channel, error) {
	v, ok := l.c.Get(cache.ChannelKey(uuid))
	if !ok {
		return domain.Channel{}, ErrKeyNotFound
	}
	ch, ok := v.(domain.Channel)
	if !ok {
		return domain.Channel{}, ErrKeyNotFound
	}
	return ch, nil
}

func (l *ChannelCache) Set(ch domain.Channel) {
	l.c.SetDefault(cache.ChannelKey(ch.UUID), ch)
}

func (l *ChannelCache) Del(uuid string) {
	l.c.Delete(cache.ChannelKey(uuid))
}
