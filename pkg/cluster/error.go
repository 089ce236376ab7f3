package cluster

import "fmt"

// InvalidClusterError reports a selection that violated the cluster
// integrity rules. The cycle that produced it must be retried or skipped,
// never displayed.
type InvalidClusterError struct {
	Reason string
}

func (e *InvalidClusterError) Error() string {
	return fmt.Sprintf("invalid cluster: %s", e.Reason)
}
