package nop

import (
	"context"

	"github.com/papercomputeco/mural/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishCluster validates input and otherwise does nothing.
func (p *Publisher) PublishCluster(_ context.Context, event *eventstream.ClusterSelectedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishWorkingSetChange validates input and otherwise does nothing.
func (p *Publisher) PublishWorkingSetChange(_ context.Context, event *eventstream.WorkingSetChangedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
