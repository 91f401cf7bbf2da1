package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	alertevt "gitee.com/flycash/courier-platform/internal/event/alert"
	"gitee.com/flycash/courier-platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 手写桩：嵌入接口满足编译，只覆盖被测路径用到的方法

type fakeChannelRepo struct {
	repository.ChannelRepository
	relayers []domain.Channel
}

func (f *fakeChannelRepo) ListActiveRelayers(_ context.Context) ([]domain.Channel, error) {
	return f.relayers, nil
}

func (f *fakeChannelRepo) GetByID(_ context.Context, id int64) (domain.Channel, error) {
	for _, c := range f.relayers {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Channel{ID: id}, nil
}

type fakeSyncRepo struct {
	repository.SyncEventRepository
	latest map[int64]domain.SyncEvent
}

func (f *fakeSyncRepo) GetLatestByChannelIDs(_ context.Context, _ []int64) (map[int64]domain.SyncEvent, error) {
	return f.latest, nil
}

type alertKey struct {
	channelID int64
	alertType domain.AlertType
}

// fakeAlertRepo 带锁，三类规则并行评估时会并发读写
type fakeAlertRepo struct {
	repository.AlertRepository
	mu          sync.Mutex
	open        map[alertKey]domain.Alert
	recentTypes map[alertKey]bool

	created []domain.Alert
	closed  []alertKey
	nextID  int64
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{
		open:        make(map[alertKey]domain.Alert),
		recentTypes: make(map[alertKey]bool),
	}
}

func (f *fakeAlertRepo) Create(_ context.Context, alert domain.Alert) (domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	alert.ID = f.nextID
	alert.CreatedOn = time.Now()
	f.open[alertKey{alert.ChannelID, alert.Type}] = alert
	f.created = append(f.created, alert)
	return alert, nil
}

func (f *fakeAlertRepo) GetOpen(_ context.Context, channelID int64, alertType domain.AlertType) (domain.Alert, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.open[alertKey{channelID, alertType}]
	return a, ok, nil
}

func (f *fakeAlertRepo) ListOpen(_ context.Context, alertType domain.AlertType) ([]domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.Alert
	for k, a := range f.open {
		if k.alertType == alertType {
			res = append(res, a)
		}
	}
	return res, nil
}

func (f *fakeAlertRepo) CloseOpen(_ context.Context, channelID int64, alertType domain.AlertType, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := alertKey{channelID, alertType}
	if _, ok := f.open[key]; !ok {
		return 0, nil
	}
	delete(f.open, key)
	f.closed = append(f.closed, key)
	return 1, nil
}

func (f *fakeAlertRepo) CreatedSince(_ context.Context, channelID int64, alertType domain.AlertType, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recentTypes[alertKey{channelID, alertType}], nil
}

type fakeMsgRepo struct {
	repository.MsgRepository
	stuck    []int64
	lastSent map[int64]time.Time
}

func (f *fakeMsgRepo) StuckChannelIDs(_ context.Context, _, _ time.Time) ([]int64, error) {
	return f.stuck, nil
}

func (f *fakeMsgRepo) LastOutgoingSent(_ context.Context, channelID int64) (time.Time, error) {
	return f.lastSent[channelID], nil
}

type fakeProducer struct {
	events []alertevt.Event
}

func (f *fakeProducer) Produce(_ context.Context, evt alertevt.Event) error {
	f.events = append(f.events, evt)
	return nil
}

type harness struct {
	svc         Service
	channelRepo *fakeChannelRepo
	syncRepo    *fakeSyncRepo
	alertRepo   *fakeAlertRepo
	msgRepo     *fakeMsgRepo
	producer    *fakeProducer
}

func newHarness(relayers ...domain.Channel) *harness {
	h := &harness{
		channelRepo: &fakeChannelRepo{relayers: relayers},
		syncRepo:    &fakeSyncRepo{latest: make(map[int64]domain.SyncEvent)},
		alertRepo:   newFakeAlertRepo(),
		msgRepo:     &fakeMsgRepo{lastSent: make(map[int64]time.Time)},
		producer:    &fakeProducer{},
	}
	h.svc = NewService(h.channelRepo, h.syncRepo, h.alertRepo, h.msgRepo, h.producer)
	return h
}

func relayer(id int64, lastSeen time.Time) domain.Channel {
	return domain.Channel{
		ID:         id,
		UUID:       "uuid-relayer",
		OrgID:      1,
		Type:       domain.ChannelTypeAndroid,
		AlertEmail: "ops@example.com",
		IsActive:   true,
		LastSeen:   lastSeen,
	}
}

func TestSweepPower(t *testing.T) {
	t.Parallel()

	t.Run("低电量且未充电时打开告警", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.syncRepo.latest[1] = domain.SyncEvent{
			ID: 100, ChannelID: 1,
			PowerStatus: domain.PowerStatusDischarging, PowerLevel: 10,
		}
		require.NoError(t, h.svc.Sweep(context.Background()))

		require.Len(t, h.alertRepo.created, 1)
		assert.Equal(t, domain.AlertTypePower, h.alertRepo.created[0].Type)
		assert.Equal(t, int64(100), h.alertRepo.created[0].SyncEventID)

		require.Len(t, h.producer.events, 1)
		assert.Equal(t, alertevt.ActionOpened, h.producer.events[0].Action)
		assert.Equal(t, 10, h.producer.events[0].PowerLevel)
		assert.Equal(t, "ops@example.com", h.producer.events[0].AlertEmail)
	})

	t.Run("已有打开中告警时不重复打开", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.syncRepo.latest[1] = domain.SyncEvent{
			ChannelID: 1, PowerStatus: domain.PowerStatusDischarging, PowerLevel: 10,
		}
		require.NoError(t, h.svc.Sweep(context.Background()))
		require.NoError(t, h.svc.Sweep(context.Background()))

		assert.Len(t, h.alertRepo.created, 1)
		assert.Len(t, h.producer.events, 1)
	})

	t.Run("充电后关闭告警", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.syncRepo.latest[1] = domain.SyncEvent{
			ChannelID: 1, PowerStatus: domain.PowerStatusDischarging, PowerLevel: 10,
		}
		require.NoError(t, h.svc.Sweep(context.Background()))

		h.syncRepo.latest[1] = domain.SyncEvent{
			ChannelID: 1, PowerStatus: domain.PowerStatusCharging, PowerLevel: 15,
		}
		require.NoError(t, h.svc.Sweep(context.Background()))

		require.Len(t, h.alertRepo.closed, 1)
		assert.Equal(t, domain.AlertTypePower, h.alertRepo.closed[0].alertType)
		require.Len(t, h.producer.events, 2)
		assert.Equal(t, alertevt.ActionClosed, h.producer.events[1].Action)
	})

	t.Run("没有打开中告警时充电不发恢复事件", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.syncRepo.latest[1] = domain.SyncEvent{
			ChannelID: 1, PowerStatus: domain.PowerStatusFull, PowerLevel: 100,
		}
		require.NoError(t, h.svc.Sweep(context.Background()))
		assert.Empty(t, h.producer.events)
	})

	t.Run("电量正常且未充电时不动作", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.syncRepo.latest[1] = domain.SyncEvent{
			ChannelID: 1, PowerStatus: domain.PowerStatusDischarging, PowerLevel: 80,
		}
		require.NoError(t, h.svc.Sweep(context.Background()))
		assert.Empty(t, h.alertRepo.created)
		assert.Empty(t, h.alertRepo.closed)
	})
}

func TestSweepDisconnected(t *testing.T) {
	t.Parallel()

	t.Run("超窗未握手时打开告警", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now().Add(-time.Hour)))
		require.NoError(t, h.svc.Sweep(context.Background()))

		require.Len(t, h.alertRepo.created, 1)
		assert.Equal(t, domain.AlertTypeDisconnected, h.alertRepo.created[0].Type)
	})

	t.Run("从未握手过的渠道不告警", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Time{}))
		require.NoError(t, h.svc.Sweep(context.Background()))
		assert.Empty(t, h.alertRepo.created)
	})

	t.Run("重新握手后关闭告警", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now().Add(-time.Hour)))
		require.NoError(t, h.svc.Sweep(context.Background()))
		require.Len(t, h.alertRepo.created, 1)

		// 设备恢复握手，last_seen 越过告警创建时间
		h.channelRepo.relayers[0].LastSeen = time.Now()
		require.NoError(t, h.svc.Sweep(context.Background()))

		require.Len(t, h.alertRepo.closed, 1)
		assert.Equal(t, domain.AlertTypeDisconnected, h.alertRepo.closed[0].alertType)
	})
}

func TestSweepBacklog(t *testing.T) {
	t.Parallel()

	t.Run("消息积压时打开告警", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.msgRepo.stuck = []int64{1}
		require.NoError(t, h.svc.Sweep(context.Background()))

		require.Len(t, h.alertRepo.created, 1)
		assert.Equal(t, domain.AlertTypeSMS, h.alertRepo.created[0].Type)
	})

	t.Run("静默窗口内刚发送过的渠道不告警", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.msgRepo.stuck = []int64{1}
		h.msgRepo.lastSent[1] = time.Now().Add(-time.Hour)
		require.NoError(t, h.svc.Sweep(context.Background()))
		assert.Empty(t, h.alertRepo.created)
	})

	t.Run("静默窗口内已发过同类告警时不再发", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.msgRepo.stuck = []int64{1}
		h.alertRepo.recentTypes[alertKey{1, domain.AlertTypeSMS}] = true
		require.NoError(t, h.svc.Sweep(context.Background()))
		assert.Empty(t, h.alertRepo.created)
	})

	t.Run("积压消失后关闭遗留告警", func(t *testing.T) {
		t.Parallel()
		h := newHarness(relayer(1, time.Now()))
		h.msgRepo.stuck = []int64{1}
		require.NoError(t, h.svc.Sweep(context.Background()))
		require.Len(t, h.alertRepo.created, 1)

		h.msgRepo.stuck = nil
		// 上一轮的告警记录还在静默窗口内，不影响关闭
		h.alertRepo.recentTypes[alertKey{1, domain.AlertTypeSMS}] = true
		require.NoError(t, h.svc.Sweep(context.Background()))

		require.Len(t, h.alertRepo.closed, 1)
		assert.Equal(t, domain.AlertTypeSMS, h.alertRepo.closed[0].alertType)
	})
}
