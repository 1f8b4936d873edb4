package ports

import "time"

// PipelineMetrics receives counters from the application layer. Implementations
// must tolerate a nil receiver so services can run without metrics.
type PipelineMetrics interface {
	Reconciled(topic, status, action string)
	PollRecords(entity string, n int)
	SyncRun(status string, d time.Duration)
}
