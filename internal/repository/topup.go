package repository

import (
	"context"

	"gitee.com/flycash/courier-platform/internal/repository/dao"
)

//go:generate mockgen -source=./topup.go -package=repomocks -destination=./mocks/topup.mock.go TopUpRepository
type TopUpRepository interface {
	// Decrement 扣减业务方一个单位额度，返回吸收扣减的额度ID
	Decrement(ctx context.Context, orgID int64) (int64, error)
}

type topUpRepository struct {
	dao dao.TopUpDAO
}

// NewTopUpRepository 创建额度仓储实例
func NewTopUpRepository(d dao.TopUpDAO) TopUpRepository {
	return &topUpRepository{dao: d}
}

func (r *topUpRepository) Decrement(ctx context.Context, orgID int64) (int64, error) {
	return r.dao.Decrement(ctx, orgID)
}
