package registry

import (
	"context"
	"fmt"
	"sync"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/errs"
	"gitee.com/flycash/courier-platform/internal/pkg/courier"
)

// Descriptor 渠道类型的能力描述，进程启动时登记，之后只读
type Descriptor struct {
	Code        string
	Name        string
	Schemes     []string
	Roles       domain.ChannelRole
	MaxLength   int  // 单条消息最大长度，0 表示不限
	Attachments bool // 是否支持附件
	ClaimMode   string
}

// 认领方式
const (
	ClaimModeRelayer = "relayer" // 设备扫码认领，走同步握手
	ClaimModeConfig  = "config"  // 填写供应商凭证
)

// Handler 渠道类型的供应商对接面，每个类型一个可替换实现
type Handler interface {
	// Activate 在供应商侧激活渠道（注册回调地址等）
	Activate(ctx context.Context, channel domain.Channel) error
	// Deactivate 在供应商侧注销渠道
	Deactivate(ctx context.Context, channel domain.Channel) error
	// Send 投递一个出站任务
	Send(ctx context.Context, channel domain.Channel, task courier.Task) error
}

var (
	mu          sync.RWMutex
	descriptors = make(map[string]Descriptor)
	handlers    = make(map[string]Handler)
)

// Register 登记一个渠道类型，重复登记直接 panic，属于编程错误
func Register(d Descriptor, h Handler) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := descriptors[d.Code]; ok {
		panic(fmt.Sprintf("渠道类型重复注册: %s", d.Code))
	}
	descriptors[d.Code] = d
	handlers[d.Code] = h
}

// Get 按类型编码取能力描述
func Get(code string) (Descriptor, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := descriptors[code]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", errs.ErrUnknownChannelType, code)
	}
	return d, nil
}

// GetHandler 按类型编码取供应商对接实现
func GetHandler(code string) (Handler, error) {
	mu.RLock()
	defer mu.RUnlock()
	h, ok := handlers[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownChannelType, code)
	}
	return h, nil
}

// All 返回全部已登记的类型
func All() []Descriptor {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d)
	}
	return out
}
