package sync

// 设备上行命令类型
const (
	CmdFCM    = "fcm"    // 设备身份
	CmdStatus = "status" // 遥测
	CmdMtSent = "mt_sent"
	CmdMtDlvd = "mt_dlvd"
	CmdMtErr  = "mt_error"
	CmdMtFail = "mt_fail"
	CmdCall   = "call"
	CmdMoSMS  = "mo_sms"
	CmdReset  = "reset"
)

// 服务端下行命令类型
const (
	CmdMtBcast = "mt_bcast" // 出站消息，按相同内容聚合
	CmdAck     = "ack"
	CmdReg     = "reg" // 认领引导
	CmdRel     = "rel" // 复位指令，设备收到后清除注册
)

// 电话事件类型
const (
	CallMissed   = "mo_miss"
	CallIncoming = "mo_call"
	CallOutgoing = "mt_call"
)

// Cmd 一条上行命令。协议是扁平的字段联合，
// 靠 cmd 字段区分类型，无关字段留零值
type Cmd struct {
	Cmd string `json:"cmd"`
	PID string `json:"p_id"`

	// fcm
	FCMID string `json:"fcm_id"`
	UUID  string `json:"uuid"`

	// status
	PowerStatus string  `json:"p_sts"`
	PowerSource string  `json:"p_src"`
	PowerLevel  int     `json:"p_lvl"`
	Network     string  `json:"net"`
	AppVersion  string  `json:"app_version"`
	OrgID       int64   `json:"org_id"`
	Retry       []int64 `json:"retry"`
	Pending     []int64 `json:"pending"`

	// mt_* 回执
	MsgID int64 `json:"msg_id"`

	// call / mo_sms
	Phone    string `json:"phone"`
	Type     string `json:"type"`
	Duration int    `json:"dur"`
	Msg      string `json:"msg"`

	TS int64 `json:"ts"`
}

// Request 一次握手的请求体
type Request struct {
	Cmds []Cmd `json:"cmds"`
}

// BcastTarget mt_bcast 的一个收件目标
type BcastTarget struct {
	ID    int64  `json:"id"`
	Phone string `json:"phone"`
}

// RespCmd 一条下行命令，同样是扁平联合
type RespCmd struct {
	Cmd string `json:"cmd"`

	// mt_bcast
	To    []BcastTarget `json:"to,omitempty"`
	Msg   string        `json:"msg,omitempty"`
	Media []string      `json:"media,omitempty"`

	// ack
	PID string `json:"p_id,omitempty"`

	// reg / rel
	RelayerClaimCode string `json:"relayer_claim_code,omitempty"`
	RelayerSecret    string `json:"relayer_secret,omitempty"`
	RelayerID        int64  `json:"relayer_id,omitempty"`
}

// Response 一次握手的响应体
type Response struct {
	Cmds []RespCmd `json:"cmds"`
}
