package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the Kafka notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter builds a writer for the notifications topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
		Async:    true,
	}
}

type notificationEvent struct {
	Event     string    `json:"event"`
	Session   string    `json:"session"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Kafka publishes each message to a topic, keyed by session, so a
// notification service can pick it up. Publish failures are only logged.
type Kafka struct {
	writer  MessageWriter
	session string
	logger  *zap.Logger
	now     func() time.Time
}

func NewKafka(writer MessageWriter, session string, logger *zap.Logger) *Kafka {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kafka{writer: writer, session: session, logger: logger, now: time.Now}
}

func (k *Kafka) Error(ctx context.Context, message string) {
	data, err := json.Marshal(notificationEvent{
		Event:     "cart.notification",
		Session:   k.session,
		Message:   message,
		Timestamp: k.now().UTC(),
	})
	if err != nil {
		k.logger.Error("encode notification", zap.Error(err))
		return
	}

	// the request context may be cancelled as soon as the handler returns
	ctx = context.WithoutCancel(ctx)
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(k.session), Value: data}); err != nil {
		k.logger.Warn("publish notification failed",
			zap.String("session", k.session),
			zap.Error(err),
		)
	}
}
