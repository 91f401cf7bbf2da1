package mqx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Producer 把一个事件序列化后发到固定主题
type Producer[T any] interface {
	Produce(ctx context.Context, evt T) error
}

// GeneralProducer 泛型 Kafka 生产者，事件统一用 JSON 编码
type GeneralProducer[T any] struct {
	producer *kafka.Producer
	topic    string
}

func NewGeneralProducer[T any](producer *kafka.Producer, topic string) (*GeneralProducer[T], error) {
	return &GeneralProducer[T]{
		producer: producer,
		topic:    topic,
	}, nil
}

func (p *GeneralProducer[T]) Produce(ctx context.Context, evt T) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Value:          data,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("发送事件失败: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("未知的投递结果: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("发送事件失败: %w", m.TopicPartition.Error)
		}
	}
	return nil
}

func (p *GeneralProducer[T]) Close() {
	p.producer.Close()
}
