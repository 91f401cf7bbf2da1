package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/errs"
	"gitee.com/flycash/courier-platform/internal/pkg/idempotent"
	"gitee.com/flycash/courier-platform/internal/pkg/signature"
	"gitee.com/flycash/courier-platform/internal/repository"
	"gitee.com/flycash/courier-platform/internal/service/receive"
	"github.com/ecodeclub/ekit/slice"
	"github.com/gotomicro/ego/core/elog"
)

const (
	// ReplayWindow 签名时间戳的有效窗口，超窗请求一律拒绝
	ReplayWindow = 15 * time.Minute

	// 单次握手最多下发的出站消息数，防止弱网设备一次拉不完
	maxOutboundBatch = 100
)

//go:generate mockgen -source=./sync.go -package=syncmocks -destination=./mocks/sync.mock.go Service
type Service interface {
	// Process 处理一次设备握手。
	// 认证失败返回 errs 里对应的哨兵错误，由接入层翻译成 error_id；
	// 未知渠道和已释放渠道不算错误，返回只含复位指令的响应
	Process(ctx context.Context, channelUUID, sig string, ts int64, body []byte, req Request) (Response, error)
}

// Releaser 渠道释放入口，reset 命令走完整的释放级联
type Releaser interface {
	Release(ctx context.Context, id int64) error
}

type service struct {
	channelRepo repository.ChannelRepository
	msgRepo     repository.MsgRepository
	contactRepo repository.ContactRepository
	syncRepo    repository.SyncEventRepository
	receiver    receive.Service
	releaser    Releaser
	idem        idempotent.IdempotencyService
	logger      *elog.Component
}

func NewService(
	channelRepo repository.ChannelRepository,
	msgRepo repository.MsgRepository,
	contactRepo repository.ContactRepository,
	syncRepo repository.SyncEventRepository,
	receiver receive.Service,
	releaser Releaser,
	idem idempotent.IdempotencyService,
) Service {
	return &service{
		channelRepo: channelRepo,
		msgRepo:     msgRepo,
		contactRepo: contactRepo,
		syncRepo:    syncRepo,
		receiver:    receiver,
		releaser:    releaser,
		idem:        idem,
		logger:      elog.DefaultLogger,
	}
}

func (s *service) Process(ctx context.Context, channelUUID, sig string, ts int64, body []byte, req Request) (Response, error) {
	channel, err := s.channelRepo.GetByUUID(ctx, channelUUID)
	if err != nil {
		if errors.Is(err, errs.ErrChannelNotFound) {
			// 孤儿设备拿不到 401，只会收到复位指令自行注销
			return Response{Cmds: []RespCmd{{Cmd: CmdRel}}}, nil
		}
		return Response{}, err
	}

	// 已释放的渠道对一切后续握手只回复位指令
	if channel.IsReleased() {
		return Response{Cmds: []RespCmd{{Cmd: CmdRel, RelayerID: channel.ID}}}, nil
	}

	if channel.Secret == "" {
		return Response{}, fmt.Errorf("%w: channel = %s", errs.ErrChannelNotUsable, channelUUID)
	}
	// 双向判窗，设备时钟大幅快于服务端的请求同样拒绝
	if drift := time.Since(time.Unix(ts, 0)); drift > ReplayWindow || drift < -ReplayWindow {
		return Response{}, fmt.Errorf("%w: ts = %d", errs.ErrRequestExpired, ts)
	}
	if !signature.Verify(channel.Secret, ts, body, sig) {
		return Response{}, fmt.Errorf("%w: channel = %s", errs.ErrInvalidSignature, channelUUID)
	}

	// 未认领但已有密钥：设备在等人输入认领码，回认领引导
	if !channel.IsClaimed() {
		return Response{Cmds: []RespCmd{{
			Cmd:              CmdReg,
			RelayerClaimCode: channel.ClaimCode,
			RelayerSecret:    channel.Secret,
			RelayerID:        channel.ID,
		}}}, nil
	}

	if len(req.Cmds) == 0 || req.Cmds[0].Cmd != CmdFCM {
		return Response{}, fmt.Errorf("%w", errs.ErrMissingDeviceCmd)
	}

	resp := Response{Cmds: make([]RespCmd, 0, len(req.Cmds)+1)}
	counts := countDirections(req.Cmds)

	// 同一次握手里固件会把同一个未接来电重复上报，按相邻去重
	var lastCallKey string

	for i := range req.Cmds {
		cmd := req.Cmds[i]
		switch cmd.Cmd {
		case CmdFCM:
			s.handleIdentity(ctx, channel, cmd)
		case CmdStatus:
			s.handleStatus(ctx, channel, cmd, counts)
		case CmdMtSent, CmdMtDlvd, CmdMtErr, CmdMtFail:
			s.handleAck(ctx, cmd)
		case CmdCall:
			key := fmt.Sprintf("%s|%s|%d", cmd.Phone, cmd.Type, cmd.TS)
			if key != lastCallKey {
				s.handleCall(ctx, channel, cmd)
			}
			lastCallKey = key
		case CmdMoSMS:
			s.handleInbound(ctx, channel, cmd)
		case CmdReset:
			if err := s.releaser.Release(ctx, channel.ID); err != nil {
				s.logger.Warn("设备发起的释放失败",
					elog.FieldErr(err),
					elog.Int64("channelID", channel.ID))
			}
			resp.Cmds = append(resp.Cmds, s.ack(cmd)...)
			// 释放后不再下发任何出站消息
			return resp, nil
		default:
			s.logger.Warn("未识别的设备命令",
				elog.String("cmd", cmd.Cmd),
				elog.Int64("channelID", channel.ID))
		}
		resp.Cmds = append(resp.Cmds, s.ack(cmd)...)
	}

	outbound, err := s.composeOutbound(ctx, channel)
	if err != nil {
		// 下发失败不吞掉已完成的命令处理，消息留在队列里等下次握手
		s.logger.Warn("组装出站命令失败",
			elog.FieldErr(err),
			elog.Int64("channelID", channel.ID))
	}
	resp.Cmds = append(resp.Cmds, outbound...)
	return resp, nil
}

// ack 带关联ID的命令逐条回执
func (s *service) ack(cmd Cmd) []RespCmd {
	if cmd.PID == "" {
		return nil
	}
	return []RespCmd{{Cmd: CmdAck, PID: cmd.PID}}
}

func (s *service) handleIdentity(ctx context.Context, channel domain.Channel, cmd Cmd) {
	if cmd.FCMID != channel.FCMID || cmd.UUID != channel.DeviceUUID {
		if err := s.channelRepo.UpdateDeviceIdentity(ctx, channel, cmd.FCMID, cmd.UUID); err != nil {
			s.logger.Warn("更新设备身份失败",
				elog.FieldErr(err),
				elog.Int64("channelID", channel.ID))
			return
		}
	}
	if err := s.channelRepo.UpdateLastSeen(ctx, channel, time.Now()); err != nil {
		s.logger.Warn("更新渠道活跃时间失败",
			elog.FieldErr(err),
			elog.Int64("channelID", channel.ID))
	}
}

func (s *service) handleStatus(ctx context.Context, channel domain.Channel, cmd Cmd, counts directionCounts) {
	_, err := s.syncRepo.Create(ctx, domain.SyncEvent{
		ChannelID:     channel.ID,
		PowerSource:   cmd.PowerSource,
		PowerStatus:   cmd.PowerStatus,
		PowerLevel:    cmd.PowerLevel,
		NetworkType:   cmd.Network,
		AppVersion:    cmd.AppVersion,
		PendingCount:  len(cmd.Pending),
		RetryCount:    len(cmd.Retry),
		IncomingCount: counts.incoming,
		OutgoingCount: counts.outgoing,
	})
	if err != nil {
		s.logger.Warn("记录同步事件失败",
			elog.FieldErr(err),
			elog.Int64("channelID", channel.ID))
	}
}

func (s *service) handleAck(ctx context.Context, cmd Cmd) {
	msgID := correctMsgID(cmd.MsgID)
	var err error
	switch cmd.Cmd {
	case CmdMtSent:
		err = s.msgRepo.UpdateStatus(ctx, msgID, domain.MsgStatusSent)
	case CmdMtDlvd:
		err = s.msgRepo.UpdateStatus(ctx, msgID, domain.MsgStatusDelivered)
	case CmdMtErr:
		err = s.msgRepo.MarkErrored(ctx, msgID, time.Now().Add(time.Hour))
	case CmdMtFail:
		err = s.msgRepo.UpdateStatus(ctx, msgID, domain.MsgStatusFailed)
	}
	if err != nil {
		// 未知ID是固件重启后陈旧回执的常态，确认但不处理
		if errors.Is(err, errs.ErrMsgNotFound) {
			return
		}
		s.logger.Warn("更新消息状态失败",
			elog.FieldErr(err),
			elog.Int64("msgID", msgID))
	}
}

func (s *service) handleCall(ctx context.Context, channel domain.Channel, cmd Cmd) {
	contact, _, _, err := s.contactRepo.GetOrCreateByURN(ctx, channel.OrgID, channel.ID, domain.SchemeTel, cmd.Phone)
	if err != nil {
		s.logger.Warn("解析来电联系人失败",
			elog.FieldErr(err),
			elog.String("phone", cmd.Phone))
		return
	}
	if err := s.contactRepo.UpdateLastSeen(ctx, contact.ID, time.Unix(cmd.TS, 0)); err != nil {
		s.logger.Warn("更新联系人活跃时间失败",
			elog.FieldErr(err),
			elog.Int64("contactID", contact.ID))
	}
}

func (s *service) handleInbound(ctx context.Context, channel domain.Channel, cmd Cmd) {
	if cmd.PID != "" {
		existed, err := s.idem.Exists(ctx, fmt.Sprintf("%s:%s", channel.UUID, cmd.PID))
		if err != nil {
			s.logger.Warn("幂等判定失败，按未出现处理",
				elog.FieldErr(err),
				elog.String("pID", cmd.PID))
		}
		if existed {
			return
		}
	}

	contact, urn, created, err := s.contactRepo.GetOrCreateByURN(ctx, channel.OrgID, channel.ID, domain.SchemeTel, cmd.Phone)
	if err != nil {
		s.logger.Warn("解析入站联系人失败",
			elog.FieldErr(err),
			elog.String("phone", cmd.Phone))
		return
	}

	msg, err := s.msgRepo.Create(ctx, domain.Msg{
		OrgID:        channel.OrgID,
		ChannelID:    channel.ID,
		ChannelUUID:  channel.UUID,
		ContactID:    contact.ID,
		ContactURNID: urn.ID,
		URN:          urn.URN(),
		Text:         cmd.Msg,
		Direction:    domain.DirectionIn,
		Status:       domain.MsgStatusPending,
		CreatedOn:    time.Unix(cmd.TS, 0),
	})
	if err != nil {
		s.logger.Warn("入站消息落库失败",
			elog.FieldErr(err),
			elog.Int64("contactID", contact.ID))
		return
	}

	s.receiver.Process(ctx, channel, contact, urn, msg, created)
}

// composeOutbound 拉取渠道上待发消息并聚合为下行命令。
// 相同文本和附件的消息合并成一条 mt_bcast，显著减少群发场景的响应体积
func (s *service) composeOutbound(ctx context.Context, channel domain.Channel) ([]RespCmd, error) {
	msgs, err := s.msgRepo.GetQueuedForChannel(ctx, channel.ID, maxOutboundBatch)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	type group struct {
		cmd RespCmd
		ids []int64
	}
	var order []string
	groups := make(map[string]*group)
	for i := range msgs {
		media := slice.Map(msgs[i].Attachments, func(_ int, src domain.Attachment) string {
			return src.String()
		})
		key := msgs[i].Text + "\x00" + strings.Join(media, "\x00")
		g, ok := groups[key]
		if !ok {
			g = &group{cmd: RespCmd{Cmd: CmdMtBcast, Msg: msgs[i].Text, Media: media}}
			groups[key] = g
			order = append(order, key)
		}
		g.cmd.To = append(g.cmd.To, BcastTarget{ID: msgs[i].ID, Phone: phonePath(msgs[i].URN)})
		g.ids = append(g.ids, msgs[i].ID)
	}

	out := make([]RespCmd, 0, len(order))
	for _, key := range order {
		g := groups[key]
		for _, id := range g.ids {
			// 已交给设备即视为已提交，设备之后的回执推进后续状态
			if uerr := s.msgRepo.UpdateStatus(ctx, id, domain.MsgStatusWired); uerr != nil {
				s.logger.Warn("标记消息已提交失败",
					elog.FieldErr(uerr),
					elog.Int64("msgID", id))
			}
		}
		out = append(out, g.cmd)
	}
	return out, nil
}

type directionCounts struct {
	incoming int
	outgoing int
}

// countDirections 一次握手里双向命令的数量，记入遥测快照
func countDirections(cmds []Cmd) directionCounts {
	var c directionCounts
	for i := range cmds {
		switch cmds[i].Cmd {
		case CmdMoSMS, CmdCall:
			c.incoming++
		case CmdMtSent, CmdMtDlvd, CmdMtErr, CmdMtFail:
			c.outgoing++
		}
	}
	return c
}

// phonePath 去掉地址的类型前缀，设备只认号码
func phonePath(urn string) string {
	idx := strings.Index(urn, ":")
	if idx < 0 {
		return urn
	}
	return urn[idx+1:]
}
