package ioc

import (
	channelweb "gitee.com/flycash/courier-platform/internal/web/channel"
	relayerweb "gitee.com/flycash/courier-platform/internal/web/relayer"
	"github.com/gotomicro/ego/server/egin"
)

func InitHTTPServer(
	relayerHandler *relayerweb.Handler,
	channelHandler *channelweb.Handler,
) *egin.Component {
	server := egin.Load("server.http").Build()
	relayerHandler.PublicRoutes(server.Engine)
	channelHandler.PrivateRoutes(server.Engine)
	return server
}
