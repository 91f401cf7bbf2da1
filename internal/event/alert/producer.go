package alert

import (
	"context"

	"gitee.com/flycash/courier-platform/internal/pkg/mqx"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

//go:generate mockgen -source=./producer.go -package=evtmocks -destination=../mocks/alert_producer.mock.go -typed EventProducer
type EventProducer interface {
	Produce(ctx context.Context, evt Event) error
}

func NewEventProducer(producer *kafka.Producer) (EventProducer, error) {
	return mqx.NewGeneralProducer[Event](producer, eventName)
}
