package errs

import (
	"errors"
)

// 定义统一的错误类型
var (
	ErrInvalidParameter = errors.New("参数错误")

	ErrChannelNotFound      = errors.New("渠道不存在")
	ErrUnsupportedScheme    = errors.New("渠道不支持请求的地址类型")
	ErrChannelHasDependents = errors.New("渠道仍被流程依赖，无法释放")
	ErrCreateChannelFailed  = errors.New("创建渠道失败")
	ErrUnknownChannelType   = errors.New("未知的渠道类型")

	ErrMsgNotFound     = errors.New("消息记录不存在")
	ErrEnqueueFailed   = errors.New("消息入队失败")
	ErrContactNotFound = errors.New("联系人不存在")

	ErrNoCredit = errors.New("额度已经用完")

	// 同步协议的认证错误，对应的 error_id 与设备固件约定，必须保持稳定
	ErrInvalidSignature = errors.New("签名不匹配")
	ErrChannelNotUsable = errors.New("渠道未认领或已释放")
	ErrRequestExpired   = errors.New("请求已超出重放窗口")
	ErrMissingDeviceCmd = errors.New("首条命令必须是设备身份命令")
)
