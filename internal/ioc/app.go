package ioc

import (
	"context"

	"gitee.com/flycash/courier-platform/internal/event/alert"
	contactevt "gitee.com/flycash/courier-platform/internal/event/contact"
	"gitee.com/flycash/courier-platform/internal/pkg/courier"
	"gitee.com/flycash/courier-platform/internal/pkg/email"
	id "gitee.com/flycash/courier-platform/internal/pkg/id_generator"
	"gitee.com/flycash/courier-platform/internal/pkg/idempotent"
	"gitee.com/flycash/courier-platform/internal/repository"
	"gitee.com/flycash/courier-platform/internal/repository/cache/local"
	"gitee.com/flycash/courier-platform/internal/repository/dao"
	alertsvc "gitee.com/flycash/courier-platform/internal/service/alert"
	channelsvc "gitee.com/flycash/courier-platform/internal/service/channel"
	couriersvc "gitee.com/flycash/courier-platform/internal/service/courier"
	receivesvc "gitee.com/flycash/courier-platform/internal/service/receive"
	syncsvc "gitee.com/flycash/courier-platform/internal/service/sync"
	channelweb "gitee.com/flycash/courier-platform/internal/web/channel"
	relayerweb "gitee.com/flycash/courier-platform/internal/web/relayer"
	"github.com/gotomicro/ego/server/egin"
)

const (
	// 入站命令幂等过滤器的容量和误判率
	idemCapacity  = 1_000_000
	idemErrorRate = 0.001
)

type App struct {
	HTTPServer *egin.Component
	Tasks      []Task

	ChannelSvc channelsvc.Service
	CourierSvc couriersvc.Service
	SyncSvc    syncsvc.Service
	AlertSvc   alertsvc.Service
}

func (a *App) StartTasks(ctx context.Context) {
	for _, t := range a.Tasks {
		go func(t Task) {
			t.Start(ctx)
		}(t)
	}
}

func InitApp() *App {
	db := InitDB()
	rdb := InitRedisClient()
	dclient := InitDlockClient(rdb)
	producer := InitKafkaProducer("courier-platform")

	channelRepo := repository.NewChannelRepository(dao.NewChannelDAO(db), local.NewChannelCache())
	msgRepo := repository.NewMsgRepository(dao.NewMsgDAO(db), id.NewGenerator())
	contactRepo := repository.NewContactRepository(dao.NewContactDAO(db))
	syncRepo := repository.NewSyncEventRepository(dao.NewSyncEventDAO(db))
	alertRepo := repository.NewAlertRepository(dao.NewAlertDAO(db))
	topUpRepo := repository.NewTopUpRepository(dao.NewTopUpDAO(db))

	queue := courier.NewQueue(rdb)
	idem := idempotent.NewBloomService(rdb, "sync_inbound", idemCapacity, idemErrorRate)

	alertProducer, err := alert.NewEventProducer(producer)
	if err != nil {
		panic(err)
	}
	contactProducer, err := contactevt.NewEventProducer(producer)
	if err != nil {
		panic(err)
	}
	alertConsumer, err := alert.NewEmailConsumer(InitKafkaConsumer(), email.NewSender())
	if err != nil {
		panic(err)
	}

	channelSvc := channelsvc.NewService(channelRepo, msgRepo, alertRepo, syncRepo)
	courierSvc := couriersvc.NewService(queue, msgRepo)
	receiveSvc := receivesvc.NewService(topUpRepo, msgRepo, contactRepo, contactProducer)
	syncSvc := syncsvc.NewService(channelRepo, msgRepo, contactRepo, syncRepo, receiveSvc, channelSvc, idem)
	alertSvc := alertsvc.NewService(channelRepo, syncRepo, alertRepo, msgRepo, alertProducer)

	server := InitHTTPServer(
		relayerweb.NewHandler(syncSvc),
		channelweb.NewHandler(channelSvc),
	)

	return &App{
		HTTPServer: server,
		Tasks: InitTasks(
			alertsvc.NewSweepTask(dclient, alertSvc),
			syncsvc.NewTrimTask(dclient, syncRepo),
			alertConsumer,
		),
		ChannelSvc: channelSvc,
		CourierSvc: courierSvc,
		SyncSvc:    syncSvc,
		AlertSvc:   alertSvc,
	}
}
