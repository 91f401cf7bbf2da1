package hash

import (
	"math/rand"
	"strconv"
	"testing"
	"time"
)

func TestHashNoCollision(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	testSize := 1000

	hashResults := make(map[int64]struct{}, testSize)
	for i := 0; i < testSize; i++ {
		orgID := r.Int63n(10000) + 1
		key := "channel-" + strconv.Itoa(i) + "-" + strconv.FormatInt(r.Int63(), 36)

		hashValue := Hash(orgID, key)
		if _, exists := hashResults[hashValue]; exists {
			t.Fatalf("哈希冲突: orgID=%d, key=%s, 哈希值=%d", orgID, key, hashValue)
		}
		hashResults[hashValue] = struct{}{}
	}
}

func TestHashDeterministic(t *testing.T) {
	if Hash(1, "uuid-a") != Hash(1, "uuid-a") {
		t.Error("同样的输入应产生同样的哈希值")
	}
	if Hash(1, "uuid-a") == Hash(2, "uuid-a") {
		t.Error("不同业务方的同名键不应产生同样的哈希值")
	}
}

func TestHashNonNegative(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		if v := Hash(r.Int63(), strconv.Itoa(i)); v < 0 {
			t.Fatalf("哈希值不应为负数: %d", v)
		}
	}
}

// 检查哈希分布的均匀性
func TestHashDistribution(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	testSize := 10000
	bucketCount := 100
	buckets := make([]int, bucketCount)

	for i := 0; i < testSize; i++ {
		orgID := r.Int63n(10000) + 1
		hashValue := Hash(orgID, "test"+strconv.Itoa(i))
		buckets[hashValue%int64(bucketCount)]++
	}

	expectedPerBucket := float64(testSize) / float64(bucketCount)
	maxDeviation := 0.3 * expectedPerBucket
	for i, count := range buckets {
		deviation := float64(count) - expectedPerBucket
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > maxDeviation {
			t.Logf("桶 %d 的值数量 (%d) 偏离预期 (%.2f) 超过允许范围", i, count, expectedPerBucket)
		}
	}
}
