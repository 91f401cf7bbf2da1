package cache

import "fmt"

// ChannelKey 渠道缓存键，按UUID索引
func ChannelKey(uuid string) string {
	return fmt.Sprintf("channel:%s", uuid)
}
