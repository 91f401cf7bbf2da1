package courier

import (
	"unicode/utf16"

	"gitee.com/flycash/courier-platform/internal/domain"
)

// GSM 03.38 基础字符集与转义扩展集，扩展集字符编码后占两个位置
const (
	gsm7BasicChars = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
		"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"
	gsm7ExtendedChars = "^{}\\[~]|€"
)

// 单段与多段的长度预算
const (
	gsm7SingleLimit = 160
	gsm7MultiLimit  = 153
	ucs2SingleLimit = 70
	ucs2MultiLimit  = 67
)

var (
	gsm7Basic    = make(map[rune]struct{}, len([]rune(gsm7BasicChars)))
	gsm7Extended = make(map[rune]struct{}, len([]rune(gsm7ExtendedChars)))
)

func init() {
	for _, r := range gsm7BasicChars {
		gsm7Basic[r] = struct{}{}
	}
	for _, r := range gsm7ExtendedChars {
		gsm7Extended[r] = struct{}{}
	}
}

// MsgCost 计算一条出站消息占用的吞吐槽位。
// 带附件时按附件条数计，电话类地址按短信分段数计，其余一律按 1 计。
func MsgCost(msg domain.Msg) int {
	if len(msg.Attachments) > 0 {
		return len(msg.Attachments)
	}
	if msg.URNScheme() == domain.SchemeTel {
		return Segments(msg.Text)
	}
	return 1
}

// Segments 按 GSM-7 / UCS-2 编码规则计算短信分段数
func Segments(text string) int {
	if text == "" {
		return 1
	}
	if isGSM7(text) {
		return segments(gsm7Units(text), gsm7SingleLimit, gsm7MultiLimit)
	}
	return segments(ucs2Units(text), ucs2SingleLimit, ucs2MultiLimit)
}

// isGSM7 文本是否完全落在 GSM-7 字符表内
func isGSM7(text string) bool {
	for _, r := range text {
		if _, ok := gsm7Basic[r]; ok {
			continue
		}
		if _, ok := gsm7Extended[r]; ok {
			continue
		}
		return false
	}
	return true
}

// gsm7Units 每字符的编码占位，扩展集字符占 2
func gsm7Units(text string) []int {
	units := make([]int, 0, len(text))
	for _, r := range text {
		if _, ok := gsm7Extended[r]; ok {
			units = append(units, 2)
		} else {
			units = append(units, 1)
		}
	}
	return units
}

// ucs2Units UCS-2 下按 UTF-16 编码单元计，代理对占 2
func ucs2Units(text string) []int {
	units := make([]int, 0, len(text))
	for _, r := range text {
		units = append(units, len(utf16.Encode([]rune{r})))
	}
	return units
}

// segments 累加编码占位并在超出预算时换段。
// 占 2 位的字符不能跨段拆开，放不下时整体挪到下一段。
func segments(units []int, singleLimit, multiLimit int) int {
	total := 0
	for _, u := range units {
		total += u
	}
	if total <= singleLimit {
		return 1
	}

	count := 1
	used := 0
	for _, u := range units {
		if used+u > multiLimit {
			count++
			used = 0
		}
		used += u
	}
	return count
}
