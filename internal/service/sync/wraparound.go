package sync

// 部分存量固件用有符号 32 位整数存消息ID，溢出后回执里会出现负数。
// 这是客户端缺陷的既定兼容行为，等这批固件全部退役后移除。
const wraparoundOffset = int64(1) << 32

// correctMsgID 还原被 32 位溢出弄成负数的消息ID
func correctMsgID(id int64) int64 {
	if id < 0 {
		return id + wraparoundOffset
	}
	return id
}
