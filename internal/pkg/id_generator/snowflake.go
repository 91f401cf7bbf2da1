package id

import (
	"sync/atomic"
	"time"

	"gitee.com/flycash/courier-platform/internal/pkg/hash"
)

const (
	// 位数分配
	timestampBits = 41
	hashBits      = 10
	sequenceBits  = 12

	// 位移
	hashShift      = sequenceBits
	timestampShift = hashBits + sequenceBits

	// 掩码
	sequenceMask  = (1 << sequenceBits) - 1
	hashMask      = (1 << hashBits) - 1
	timestampMask = (1 << timestampBits) - 1

	hashBuckets = 1 << hashBits

	// 基准时间 2024-01-01 00:00:00 UTC
	epochMillis = int64(1704067200000)
)

// Generator 雪花算法变种的ID生成器，中间段使用业务键哈希而非机器号，
// 同一渠道产生的入站消息ID天然落在相邻哈希桶内
type Generator struct {
	sequence int64 // 序列号计数器，原子访问
}

// NewGenerator 创建ID生成器
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateID 生成消息ID
// orgID: 业务方ID
// key: 业务键，通常是渠道UUID或地址
func (g *Generator) GenerateID(orgID int64, key string) int64 {
	timestamp := time.Now().UnixMilli() - epochMillis

	hashValue := hash.Hash(orgID, key) % hashBuckets
	if hashValue < 0 {
		hashValue += hashBuckets
	}

	sequence := (atomic.AddInt64(&g.sequence, 1) - 1) & sequenceMask

	return (timestamp&timestampMask)<<timestampShift |
		(hashValue&hashMask)<<hashShift |
		sequence
}

// ExtractTimestamp 从ID中提取时间戳
func ExtractTimestamp(id int64) time.Time {
	timestamp := (id >> timestampShift) & timestampMask
	return time.Unix(0, (timestamp+epochMillis)*int64(time.Millisecond))
}

// ExtractSequence 从ID中提取序列号部分
func ExtractSequence(id int64) int64 {
	return id & sequenceMask
}
