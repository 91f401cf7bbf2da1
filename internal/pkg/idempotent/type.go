package idempotent

import "context"

//go:generate mockgen -source=./type.go -package=idemmocks -destination=./mocks/idempotent.mock.go IdempotencyService
type IdempotencyService interface {
	// Exists 标记 key 并返回此前是否已出现过
	Exists(ctx context.Context, key string) (bool, error)
	// MExists 批量标记并返回各 key 此前是否已出现过
	MExists(ctx context.Context, keys ...string) ([]bool, error)
}
