package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	writeTimeout = 5 * time.Second
	// publishes are single synchronous messages, so flush each one at once
	batchTimeout = 10 * time.Millisecond
	batchSize    = 1
)

var ErrNoBrokers = errors.New("kafka: at least one broker is required")

// Writer is the part of kafka.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer Writer
	now    func() time.Time
}

func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           writeTimeout,
		BatchTimeout:           batchTimeout,
		BatchSize:              batchSize,
	}
	return NewProducerWithWriter(w), nil
}

func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{writer: w, now: time.Now}
}

func (p *Producer) message(topic, key string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  p.now().UTC(),
	}, nil
}

// PublishEvent writes event as JSON to topic, keyed so one user's events stay ordered.
func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	msg, err := p.message(topic, key, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s failed: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
