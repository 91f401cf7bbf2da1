package courier

import (
	"strings"
	"testing"

	"gitee.com/flycash/courier-platform/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSegments(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
		want int
	}{
		{
			name: "空文本按一段计",
			text: "",
			want: 1,
		},
		{
			name: "GSM-7 恰好 160 字符单段",
			text: strings.Repeat("a", 160),
			want: 1,
		},
		{
			name: "GSM-7 161 字符分两段",
			text: strings.Repeat("a", 161),
			want: 2,
		},
		{
			name: "GSM-7 两段上限 306 字符",
			text: strings.Repeat("a", 306),
			want: 2,
		},
		{
			name: "GSM-7 307 字符分三段",
			text: strings.Repeat("a", 307),
			want: 3,
		},
		{
			name: "扩展集字符占两个位置",
			// 80 个 € 共 160 个占位，单段放得下
			text: strings.Repeat("€", 80),
			want: 1,
		},
		{
			name: "扩展集字符超出单段",
			text: strings.Repeat("€", 81),
			want: 2,
		},
		{
			name: "扩展集字符不跨段拆分",
			// 152 个普通字符 + 1 个 €：首段只装下 152 个占位，€ 整体进第二段
			text: strings.Repeat("a", 152) + "€" + strings.Repeat("a", 152),
			want: 3,
		},
		{
			name: "含非 GSM-7 字符按 UCS-2 70 字符单段",
			text: "你" + strings.Repeat("a", 69),
			want: 1,
		},
		{
			name: "UCS-2 71 字符分两段",
			text: "你" + strings.Repeat("a", 70),
			want: 2,
		},
		{
			name: "UCS-2 多段按 67 字符分段",
			text: strings.Repeat("你", 134),
			want: 2,
		},
		{
			name: "UCS-2 135 字符分三段",
			text: strings.Repeat("你", 135),
			want: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Segments(tc.text))
		})
	}
}

func TestMsgCost(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		msg  domain.Msg
		want int
	}{
		{
			name: "带附件按附件条数计",
			msg: domain.Msg{
				URN:  "telegram:12345",
				Text: strings.Repeat("a", 500),
				Attachments: []domain.Attachment{
					{ContentType: "image/jpeg", URL: "https://example.com/a.jpg"},
					{ContentType: "image/jpeg", URL: "https://example.com/b.jpg"},
					{ContentType: "video/mp4", URL: "https://example.com/c.mp4"},
				},
			},
			want: 3,
		},
		{
			name: "电话地址按分段数计",
			msg: domain.Msg{
				URN:  "tel:+8613800138000",
				Text: strings.Repeat("a", 161),
			},
			want: 2,
		},
		{
			name: "非电话地址不分段",
			msg: domain.Msg{
				URN:  "telegram:12345",
				Text: strings.Repeat("a", 2000),
			},
			want: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MsgCost(tc.msg))
		})
	}
}
