package receive

import (
	"context"
	"testing"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/errs"
	contactevt "gitee.com/flycash/courier-platform/internal/event/contact"
	"gitee.com/flycash/courier-platform/internal/repository"
	repomocks "gitee.com/flycash/courier-platform/internal/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeContactRepo struct {
	repository.ContactRepository
	preferred map[int64]int64
	unstopped map[int64]int64
	lastSeen  map[int64]time.Time
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{
		preferred: make(map[int64]int64),
		unstopped: make(map[int64]int64),
		lastSeen:  make(map[int64]time.Time),
	}
}

func (f *fakeContactRepo) SetPreferredChannel(_ context.Context, urnID, channelID int64) error {
	f.preferred[urnID] = channelID
	return nil
}

func (f *fakeContactRepo) Unstop(_ context.Context, contactID, userID int64) error {
	f.unstopped[contactID] = userID
	return nil
}

func (f *fakeContactRepo) UpdateLastSeen(_ context.Context, contactID int64, lastSeen time.Time) error {
	f.lastSeen[contactID] = lastSeen
	return nil
}

type fakeMsgRepo struct {
	repository.MsgRepository
	topups map[int64]int64
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{topups: make(map[int64]int64)}
}

func (f *fakeMsgRepo) SetTopUp(_ context.Context, id, topUpID int64) error {
	f.topups[id] = topUpID
	return nil
}

type fakeProducer struct {
	events []contactevt.Event
}

func (f *fakeProducer) Produce(_ context.Context, evt contactevt.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func fixtures() (domain.Channel, domain.Contact, domain.ContactURN, domain.Msg) {
	channel := domain.Channel{
		ID:        7,
		OrgID:     1,
		Type:      domain.ChannelTypeAndroid,
		Schemes:   []string{domain.SchemeTel},
		CreatedBy: 3,
		IsActive:  true,
	}
	contact := domain.Contact{ID: 66, OrgID: 1}
	urn := domain.ContactURN{ID: 88, ContactID: 66, ChannelID: 7, Scheme: domain.SchemeTel, Path: "+8613800138000"}
	msg := domain.Msg{ID: 1001, OrgID: 1, ChannelID: 7, ContactID: 66, ContactURNID: 88, Direction: domain.DirectionIn}
	return channel, contact, urn, msg
}

func TestProcess(t *testing.T) {
	t.Parallel()

	t.Run("未计费的消息扣减一个单位额度", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		topUpRepo := repomocks.NewMockTopUpRepository(ctrl)
		topUpRepo.EXPECT().Decrement(gomock.Any(), int64(1)).Return(int64(5), nil)

		contactRepo := newFakeContactRepo()
		msgRepo := newFakeMsgRepo()
		producer := &fakeProducer{}
		svc := NewService(topUpRepo, msgRepo, contactRepo, producer)

		channel, contact, urn, msg := fixtures()
		svc.Process(context.Background(), channel, contact, urn, msg, false)

		// 扣减落在哪个额度要记回消息上
		assert.Equal(t, int64(5), msgRepo.topups[msg.ID])
		assert.Contains(t, contactRepo.lastSeen, contact.ID)
		require.Len(t, producer.events, 1)
		assert.Equal(t, contactevt.TypeMsgReceived, producer.events[0].Type)
		assert.Equal(t, msg.ID, producer.events[0].MsgID)
	})

	t.Run("已计费的消息不再扣额度", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		topUpRepo := repomocks.NewMockTopUpRepository(ctrl)

		contactRepo := newFakeContactRepo()
		msgRepo := newFakeMsgRepo()
		svc := NewService(topUpRepo, msgRepo, contactRepo, &fakeProducer{})

		channel, contact, urn, msg := fixtures()
		msg.TopUpID = 5
		svc.Process(context.Background(), channel, contact, urn, msg, false)

		assert.Empty(t, msgRepo.topups)
	})

	t.Run("额度用尽不影响收信", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		topUpRepo := repomocks.NewMockTopUpRepository(ctrl)
		topUpRepo.EXPECT().Decrement(gomock.Any(), int64(1)).Return(int64(0), errs.ErrNoCredit)

		contactRepo := newFakeContactRepo()
		msgRepo := newFakeMsgRepo()
		producer := &fakeProducer{}
		svc := NewService(topUpRepo, msgRepo, contactRepo, producer)

		channel, contact, urn, msg := fixtures()
		svc.Process(context.Background(), channel, contact, urn, msg, false)

		assert.Empty(t, msgRepo.topups)
		assert.Len(t, producer.events, 1)
	})

	t.Run("来信渠道变化时更新首选渠道", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		topUpRepo := repomocks.NewMockTopUpRepository(ctrl)
		topUpRepo.EXPECT().Decrement(gomock.Any(), gomock.Any()).Return(int64(5), nil)

		contactRepo := newFakeContactRepo()
		svc := NewService(topUpRepo, newFakeMsgRepo(), contactRepo, &fakeProducer{})

		channel, contact, urn, msg := fixtures()
		urn.ChannelID = 2
		svc.Process(context.Background(), channel, contact, urn, msg, false)

		assert.Equal(t, channel.ID, contactRepo.preferred[urn.ID])
	})

	t.Run("渠道不支持该地址类型时不改首选渠道", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		topUpRepo := repomocks.NewMockTopUpRepository(ctrl)
		topUpRepo.EXPECT().Decrement(gomock.Any(), gomock.Any()).Return(int64(5), nil)

		contactRepo := newFakeContactRepo()
		svc := NewService(topUpRepo, newFakeMsgRepo(), contactRepo, &fakeProducer{})

		channel, contact, urn, msg := fixtures()
		channel.Schemes = []string{domain.SchemeTelegram}
		urn.ChannelID = 2
		svc.Process(context.Background(), channel, contact, urn, msg, false)

		assert.Empty(t, contactRepo.preferred)
	})

	t.Run("已退订的联系人主动来信视为重新订阅", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		topUpRepo := repomocks.NewMockTopUpRepository(ctrl)
		topUpRepo.EXPECT().Decrement(gomock.Any(), gomock.Any()).Return(int64(5), nil)

		contactRepo := newFakeContactRepo()
		svc := NewService(topUpRepo, newFakeMsgRepo(), contactRepo, &fakeProducer{})

		channel, contact, urn, msg := fixtures()
		contact.IsStopped = true
		svc.Process(context.Background(), channel, contact, urn, msg, false)

		// 操作者记为渠道归属用户
		assert.Equal(t, channel.CreatedBy, contactRepo.unstopped[contact.ID])
	})

	t.Run("新联系人发动态分组全量事件", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		topUpRepo := repomocks.NewMockTopUpRepository(ctrl)
		topUpRepo.EXPECT().Decrement(gomock.Any(), gomock.Any()).Return(int64(5), nil)

		contactRepo := newFakeContactRepo()
		producer := &fakeProducer{}
		svc := NewService(topUpRepo, newFakeMsgRepo(), contactRepo, producer)

		channel, contact, urn, msg := fixtures()
		svc.Process(context.Background(), channel, contact, urn, msg, true)

		require.Len(t, producer.events, 1)
		assert.Equal(t, contactevt.TypeNewContact, producer.events[0].Type)
	})
}
