// Package events publishes domain events about leave applications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"leave-bot/internal/model"
)

const (
	LeaveSubmittedEvent = "leave.submitted"
	streamName          = "LEAVE"
)

type Publisher interface {
	PublishLeaveSubmitted(ctx context.Context, event model.LeaveSubmitted) error
	Close() error
}

type noopPublisher struct{}

func NewNoop() Publisher { return noopPublisher{} }

func (noopPublisher) PublishLeaveSubmitted(context.Context, model.LeaveSubmitted) error { return nil }
func (noopPublisher) Close() error { return nil }

// jetStreamPublisher is the subset of jetstream.JetStream used here.
type jetStreamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

type natsPublisher struct {
	conn    *nats.Conn
	js      jetStreamPublisher
	subject string
}

// ConnectNATS connects to url and makes sure a stream captures subject.
func ConnectNATS(ctx context.Context, url, subject string, log *zap.Logger) (Publisher, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subject},
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", streamName, err)
	}
	return &natsPublisher{conn: nc, js: js, subject: subject}, nil
}

func (p *natsPublisher) PublishLeaveSubmitted(ctx context.Context, event model.LeaveSubmitted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

func (p *natsPublisher) Close() error {
	if p.conn != nil {
		return p.conn.Drain()
	}
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaBatchTimeout bounds how long WriteMessages waits to fill a batch.
// Submissions publish one message at a time.
const kafkaBatchTimeout = 10 * time.Millisecond

type kafkaPublisher struct {
	writer messageWriter
}

// NewKafka writes events to topic, keyed by employee id so one employee's
// events stay ordered within a partition.
func NewKafka(brokers []string, topic string) Publisher {
	return &kafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           kafkaBatchTimeout,
		AllowAutoTopicCreation: true,
	}}
}

func (p *kafkaPublisher) PublishLeaveSubmitted(ctx context.Context, event model.LeaveSubmitted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EmployeeID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(LeaveSubmittedEvent)},
		},
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
