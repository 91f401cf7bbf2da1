package main

import (
	"context"

	"gitee.com/flycash/courier-platform/internal/ioc"
	"github.com/gotomicro/ego"
	"github.com/gotomicro/ego/core/elog"
	"github.com/gotomicro/ego/server"
)

func main() {
	egoApp := ego.New()

	app := ioc.InitApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.StartTasks(ctx)

	tp := ioc.InitZipkinTracer()
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			elog.Error("关闭 tracer 失败", elog.FieldErr(err))
		}
	}()

	if err := egoApp.Serve(func() server.Server {
		return app.HTTPServer
	}()).Run(); err != nil {
		elog.Panic("startup", elog.FieldErr(err))
	}
}
