package hash

import (
	"encoding/binary"
	"hash/fnv"
)

// Hash 把业务方ID和业务键混合成一个 int64 哈希值，供ID生成器取低位使用
func Hash(orgID int64, key string) int64 {
	h := fnv.New64a()

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(orgID))
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(key))

	return int64(h.Sum64() & 0x7fffffffffffffff)
}
