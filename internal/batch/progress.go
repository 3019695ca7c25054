package batch

// Progress steps emitted during a run.
const (
	StepLoadPostings    = "load_postings"
	StepListSubscribers = "list_subscribers"
	StepRecommend       = "recommend"
	StepSent            = "sent"
	StepFailed          = "failed"
	StepComplete        = "complete"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs. Per-subscriber events
// arrive from worker goroutines, so the callback must be safe for concurrent
// use.
type ProgressCallback func(event ProgressEvent)

// emitProgress calls the progress callback if configured
func emitProgress(opts *Options, event ProgressEvent) {
	if opts.OnProgress != nil {
		opts.OnProgress(event)
	}
}
