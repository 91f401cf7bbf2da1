package domain

import (
	"time"
)

// ChannelRole 渠道角色位掩码
type ChannelRole int

const (
	RoleSend    ChannelRole = 1 << iota // 发送消息
	RoleReceive                         // 接收消息
	RoleCall                            // 呼出
	RoleAnswer                          // 接听
)

// Has 判断是否包含指定角色
func (r ChannelRole) Has(role ChannelRole) bool {
	return r&role == role
}

// 渠道类型编码，完整的能力描述见 registry 包
const (
	ChannelTypeAndroid  = "A"
	ChannelTypeTwilio   = "T"
	ChannelTypeNexmo    = "NX"
	ChannelTypeTelegram = "TG"
	ChannelTypeFacebook = "FB"
	ChannelTypeWhatsApp = "WA"
)

// 地址类型
const (
	SchemeTel      = "tel"
	SchemeTelegram = "telegram"
	SchemeFacebook = "facebook"
	SchemeWhatsApp = "whatsapp"
)

// Channel 渠道领域模型，对应一个对外的消息端点（号码/社交账号/设备）
type Channel struct {
	ID      int64
	UUID    string
	OrgID   int64  // 所属业务方，未认领的中继渠道为 0
	Type    string // 渠道类型编码
	Name    string
	Address string            // 端点地址（号码、页面ID等）
	Schemes []string          // 支持的地址类型
	Role    ChannelRole       // 角色位掩码
	TPS     int               // 每秒吞吐上限，0 表示未配置（使用默认值）
	Config  map[string]string // 各供应商自己的配置

	// 中继渠道（Android 设备）的认证材料
	Secret    string
	ClaimCode string

	// 设备身份，随同步握手更新
	FCMID      string
	DeviceUUID string
	LastSeen   time.Time

	// 代理渠道：父渠道把特定角色委托给子渠道，深度固定为 1
	ParentID  int64
	Delegates []Channel

	AlertEmail string
	IsActive   bool
	CreatedBy  int64 // 渠道归属用户
}

// IsAndroid 是否为 Android 中继渠道
func (c Channel) IsAndroid() bool {
	return c.Type == ChannelTypeAndroid
}

// IsClaimed 渠道是否已被业务方认领
func (c Channel) IsClaimed() bool {
	return c.OrgID > 0
}

// IsReleased 渠道是否已释放
func (c Channel) IsReleased() bool {
	return !c.IsActive
}

// SupportsScheme 是否支持指定地址类型
func (c Channel) SupportsScheme(scheme string) bool {
	for _, s := range c.Schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

// GetDelegate 返回承担指定角色的代理渠道，没有代理时返回渠道自身
func (c Channel) GetDelegate(role ChannelRole) Channel {
	for _, d := range c.Delegates {
		if d.Role.Has(role) && d.IsActive {
			return d
		}
	}
	return c
}
