package eventstream

import "context"

// Publisher publishes traversal events to an event stream backend.
type Publisher interface {
	PublishCluster(ctx context.Context, event *ClusterSelectedEvent) error
	PublishWorkingSetChange(ctx context.Context, event *WorkingSetChangedEvent) error
	Close() error
}
