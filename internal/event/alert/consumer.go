package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/courier-platform/internal/pkg/mqx"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/gotomicro/ego/core/elog"
)

const defaultReadTimeout = time.Second

//go:generate mockgen -source=./consumer.go -package=evtmocks -destination=../mocks/email_sender.mock.go -typed EmailSender
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailConsumer 消费告警事件并给渠道负责人发邮件。
// 打开发告警邮件，关闭发恢复邮件，没有负责人邮箱时静默提交。
type EmailConsumer struct {
	consumer mqx.Consumer
	sender   EmailSender
	logger   *elog.Component
}

func NewEmailConsumer(consumer *kafka.Consumer, sender EmailSender) (*EmailConsumer, error) {
	err := consumer.SubscribeTopics([]string{eventName}, nil)
	if err != nil {
		return nil, err
	}
	return &EmailConsumer{
		consumer: consumer,
		sender:   sender,
		logger:   elog.DefaultLogger,
	}, nil
}

func (c *EmailConsumer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := c.Consume(ctx); err != nil {
				c.logger.Error("消费告警事件失败", elog.FieldErr(err))
			}
		}
	}()
}

func (c *EmailConsumer) Consume(ctx context.Context) error {
	msg, err := c.consumer.ReadMessage(defaultReadTimeout)
	if err != nil {
		var kErr kafka.Error
		if errors.As(err, &kErr) && kErr.Code() == kafka.ErrTimedOut {
			return nil
		}
		return fmt.Errorf("获取消息失败: %w", err)
	}

	var evt Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		// 解析失败的消息没有重试价值，记日志后提交跳过
		c.logger.Warn("解析告警事件失败",
			elog.FieldErr(err),
			elog.Any("msg", msg))
		_, cmErr := c.consumer.CommitMessage(msg)
		return cmErr
	}

	if evt.AlertEmail != "" {
		if err := c.sender.Send(ctx, evt.AlertEmail, c.subject(evt), c.body(evt)); err != nil {
			return fmt.Errorf("发送告警邮件失败: %w", err)
		}
	}

	_, err = c.consumer.CommitMessage(msg)
	return err
}

func alertTypeName(alertType string) string {
	switch alertType {
	case "P":
		return "设备电量过低"
	case "D":
		return "设备失联"
	default:
		return "出站消息积压"
	}
}

func (c *EmailConsumer) subject(evt Event) string {
	if evt.Action == ActionClosed {
		return fmt.Sprintf("[恢复] 渠道 %s %s告警已解除", evt.ChannelName, alertTypeName(evt.AlertType))
	}
	if evt.AlertType == "P" {
		return fmt.Sprintf("[告警] 渠道 %s 设备电量过低 (%d%%)", evt.ChannelName, evt.PowerLevel)
	}
	return fmt.Sprintf("[告警] 渠道 %s %s", evt.ChannelName, alertTypeName(evt.AlertType))
}

func (c *EmailConsumer) body(evt Event) string {
	action := "请尽快检查设备状态。"
	if evt.Action == ActionClosed {
		action = "告警已自动恢复，无需处理。"
	}
	return fmt.Sprintf("渠道: %s (%s)\n类型: %s\n时间: %s\n%s",
		evt.ChannelName, evt.ChannelUUID, evt.AlertType,
		time.UnixMilli(evt.CreatedOn).Format(time.DateTime), action)
}
