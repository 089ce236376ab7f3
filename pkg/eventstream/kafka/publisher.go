// Package kafka publishes traversal events to a Kafka topic as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/mural/pkg/eventstream"
)

// Config carries Kafka connection settings.
type Config struct {
	// Brokers are the bootstrap broker addresses.
	Brokers []string

	// Topic is the destination topic for all event types.
	Topic string
}

// Publisher writes events to Kafka, keyed so events about the same focus
// land in the same partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka publisher. The writer connects lazily on
// first publish.
func NewPublisher(c *Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}

	return &Publisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(c.Brokers...),
			Topic:        c.Topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireOne,
		},
	}, nil
}

// PublishCluster writes a cluster event keyed by the focus id.
func (p *Publisher) PublishCluster(ctx context.Context, event *eventstream.ClusterSelectedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	key := []byte(event.EventType)
	if event.Cluster.Focus != nil {
		key = []byte(strconv.FormatInt(event.Cluster.Focus.ID, 10))
	}

	return p.publish(ctx, key, event)
}

// PublishWorkingSetChange writes a working set event keyed by the reason.
func (p *Publisher) PublishWorkingSetChange(ctx context.Context, event *eventstream.WorkingSetChangedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, []byte(event.Reason), event)
}

func (p *Publisher) publish(ctx context.Context, key []byte, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   key,
		Value: payload,
	}); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
