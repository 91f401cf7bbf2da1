package repository

import (
	"context"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/repository/dao"
)

//go:generate mockgen -source=./contact.go -package=repomocks -destination=./mocks/contact.mock.go ContactRepository
type ContactRepository interface {
	GetByID(ctx context.Context, id int64) (domain.Contact, error)
	// GetOrCreateByURN 解析或创建联系人，布尔返回值表示是否新建
	GetOrCreateByURN(ctx context.Context, orgID, channelID int64, scheme, path string) (domain.Contact, domain.ContactURN, bool, error)
	SetPreferredChannel(ctx context.Context, urnID, channelID int64) error
	Unstop(ctx context.Context, contactID, userID int64) error
	UpdateLastSeen(ctx context.Context, contactID int64, lastSeen time.Time) error
}

type contactRepository struct {
	dao dao.ContactDAO
}

// NewContactRepository 创建联系人仓储实例
func NewContactRepository(d dao.ContactDAO) ContactRepository {
	return &contactRepository{dao: d}
}

func (r *contactRepository) GetByID(ctx context.Context, id int64) (domain.Contact, error) {
	c, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}
	return r.toDomain(c), nil
}

func (r *contactRepository) GetOrCreateByURN(ctx context.Context, orgID, channelID int64, scheme, path string) (domain.Contact, domain.ContactURN, bool, error) {
	c, u, created, err := r.dao.GetOrCreateByURN(ctx, orgID, channelID, scheme, path)
	if err != nil {
		return domain.Contact{}, domain.ContactURN{}, false, err
	}
	return r.toDomain(c), r.urnToDomain(u), created, nil
}

func (r *contactRepository) SetPreferredChannel(ctx context.Context, urnID, channelID int64) error {
	return r.dao.SetPreferredChannel(ctx, urnID, channelID)
}

func (r *contactRepository) Unstop(ctx context.Context, contactID, userID int64) error {
	return r.dao.Unstop(ctx, contactID, userID)
}

func (r *contactRepository) UpdateLastSeen(ctx context.Context, contactID int64, lastSeen time.Time) error {
	return r.dao.UpdateLastSeen(ctx, contactID, lastSeen)
}

func (r *contactRepository) toDomain(c dao.Contact) domain.Contact {
	return domain.Contact{
		ID:        c.ID,
		UUID:      c.UUID,
		OrgID:     c.OrgID,
		Name:      c.Name,
		IsStopped: c.IsStopped,
		LastSeen:  millisToTime(c.LastSeen),
	}
}

func (r *contactRepository) urnToDomain(u dao.ContactURN) domain.ContactURN {
	return domain.ContactURN{
		ID:        u.ID,
		ContactID: u.ContactID,
		ChannelID: u.ChannelID,
		Scheme:    u.Scheme,
		Path:      u.Path,
		Auth:      u.Auth,
	}
}
