package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"eventsds/internal/config"
	"eventsds/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher announces finished phase runs on a Kafka topic. A disabled
// publisher accepts every call and does nothing.
type Publisher struct {
	w      messageWriter
	topic  string
	logger *slog.Logger
}

func NewPublisher(cfg config.NotifyConfig, logger *slog.Logger) *Publisher {
	if !cfg.Enabled {
		if logger != nil {
			logger.Debug("run notifications disabled")
		}
		return &Publisher{logger: logger}
	}
	if logger != nil {
		logger.Info("run notifications enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
	}
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
		topic:  cfg.Topic,
		logger: logger,
	}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.w != nil
}

// RunCompleted publishes the run metadata keyed by run id.
func (p *Publisher) RunCompleted(ctx context.Context, run model.RunMetadata) error {
	if !p.Enabled() {
		return nil
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(run.ID),
		Value: payload,
		Time:  run.GeneratedAt,
		Headers: []kafka.Header{
			{Key: "phase", Value: []byte(run.Phase)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run %s to %s: %w", run.ID, p.topic, err)
	}
	if p.logger != nil {
		p.logger.Info("run published", "run_id", run.ID, "phase", run.Phase, "topic", p.topic)
	}
	return nil
}

func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.w.Close()
}
