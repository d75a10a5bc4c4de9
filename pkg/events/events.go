// Package events reports deployment progress to the systems that trigger it.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andrej220/wpdeploy/pkg/config"
	"github.com/andrej220/wpdeploy/pkg/lg"
	dm "github.com/andrej220/wpdeploy/pkg/shared-models"
	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

// Reporter receives run and task transitions.
type Reporter interface {
	Report(ctx context.Context, ev dm.Event) error
}

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaReporter publishes every event as a JSON message keyed by run id.
// Writes are asynchronous; delivery failures are logged when the batch
// completes.
type KafkaReporter struct {
	writer messageWriter
	topic  string
	lg     lg.Logger
}

func NewKafkaReporter(cfg config.EventsConfig, logger lg.Logger) *KafkaReporter {
	k := &KafkaReporter{topic: cfg.Topic, lg: logger}
	k.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
		Completion:             k.completed,
	}
	return k
}

func (k *KafkaReporter) Report(ctx context.Context, ev dm.Event) error {
	message, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   ev.RunID[:],
		Value: message,
		Time:  ev.Time,
	})
	if err != nil {
		k.logWriteError(err, 1)
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// completed is called by the writer once an asynchronous batch is done.
func (k *KafkaReporter) completed(messages []kafka.Message, err error) {
	if err != nil {
		k.logWriteError(err, len(messages))
	}
}

func (k *KafkaReporter) logWriteError(err error, messages int) {
	if errors.Is(err, kafka.UnknownTopicOrPartition) {
		k.lg.Error("Kafka topic does not exist",
			lg.String("topic", k.topic),
			lg.String("action", "Create the topic manually or enable auto-creation"))
		return
	}
	k.lg.Error("events not delivered", lg.String("topic", k.topic), lg.Int("messages", messages), lg.Err(err))
}

func (k *KafkaReporter) Close() error {
	return k.writer.Close()
}

// LogReporter writes events to the structured log.
type LogReporter struct {
	Logger lg.Logger
}

func (l LogReporter) Report(_ context.Context, ev dm.Event) error {
	fields := []lg.Field{
		lg.String("run", ev.RunID.String()),
		lg.String("host", ev.Host),
		lg.String("kind", string(ev.Kind)),
	}
	if ev.Task != "" {
		fields = append(fields, lg.String("task", ev.Task))
	}
	if ev.Error != "" {
		fields = append(fields, lg.String("error", ev.Error))
	}
	l.Logger.Debug("event", fields...)
	return nil
}

// Multi fans an event out to every reporter and joins their errors.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, ev dm.Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
