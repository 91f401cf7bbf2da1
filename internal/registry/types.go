package registry

import (
	"context"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/pkg/courier"
)

// 内置渠道类型。Android 中继通过同步握手收发，不走供应商 API；
// 其余类型的 Handler 是各自供应商的 HTTP 胶水，可按需替换。

func init() {
	Register(Descriptor{
		Code:        domain.ChannelTypeAndroid,
		Name:        "Android",
		Schemes:     []string{domain.SchemeTel},
		Roles:       domain.RoleSend | domain.RoleReceive,
		MaxLength:   640,
		Attachments: false,
		ClaimMode:   ClaimModeRelayer,
	}, relayerHandler{})

	Register(Descriptor{
		Code:        domain.ChannelTypeTwilio,
		Name:        "Twilio",
		Schemes:     []string{domain.SchemeTel},
		Roles:       domain.RoleSend | domain.RoleReceive | domain.RoleCall | domain.RoleAnswer,
		MaxLength:   1600,
		Attachments: true,
		ClaimMode:   ClaimModeConfig,
	}, noopHandler{})

	Register(Descriptor{
		Code:        domain.ChannelTypeNexmo,
		Name:        "Vonage",
		Schemes:     []string{domain.SchemeTel},
		Roles:       domain.RoleSend | domain.RoleReceive | domain.RoleCall,
		MaxLength:   1600,
		Attachments: false,
		ClaimMode:   ClaimModeConfig,
	}, noopHandler{})

	Register(Descriptor{
		Code:        domain.ChannelTypeTelegram,
		Name:        "Telegram",
		Schemes:     []string{domain.SchemeTelegram},
		Roles:       domain.RoleSend | domain.RoleReceive,
		Attachments: true,
		ClaimMode:   ClaimModeConfig,
	}, noopHandler{})

	Register(Descriptor{
		Code:        domain.ChannelTypeFacebook,
		Name:        "Facebook",
		Schemes:     []string{domain.SchemeFacebook},
		Roles:       domain.RoleSend | domain.RoleReceive,
		MaxLength:   2000,
		Attachments: true,
		ClaimMode:   ClaimModeConfig,
	}, noopHandler{})

	Register(Descriptor{
		Code:        domain.ChannelTypeWhatsApp,
		Name:        "WhatsApp",
		Schemes:     []string{domain.SchemeWhatsApp},
		Roles:       domain.RoleSend | domain.RoleReceive,
		MaxLength:   4096,
		Attachments: true,
		ClaimMode:   ClaimModeConfig,
	}, noopHandler{})
}

// relayerHandler Android 中继不经供应商 API，出站消息由设备在握手时拉走
type relayerHandler struct{}

func (relayerHandler) Activate(_ context.Context, _ domain.Channel) error   { return nil }
func (relayerHandler) Deactivate(_ context.Context, _ domain.Channel) error { return nil }
func (relayerHandler) Send(_ context.Context, _ domain.Channel, _ courier.Task) error {
	return nil
}

// noopHandler 占位实现，供应商对接在各自的部署里替换
type noopHandler struct{}

func (noopHandler) Activate(_ context.Context, _ domain.Channel) error   { return nil }
func (noopHandler) Deactivate(_ context.Context, _ domain.Channel) error { return nil }
func (noopHandler) Send(_ context.Context, _ domain.Channel, _ courier.Task) error {
	return nil
}
