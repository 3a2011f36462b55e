package pipeline

import (
	"errors"
	"log/slog"

	"feedkeeper/internal/feed"
)

// Reporter receives errors worth surfacing together with their context.
type Reporter interface {
	Report(err error, context ...any)
}

// LogReporter writes reports to a structured logger. Rejected items are
// logged as warnings, everything else as errors.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter creates a reporter that logs through log.
func NewLogReporter(log *slog.Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Report implements Reporter.
func (r *LogReporter) Report(err error, context ...any) {
	var verr *feed.ValidationError
	if errors.As(err, &verr) {
		args := append([]any{
			"field", verr.Field,
			"title", verr.Item.Title,
			"link", verr.Item.Link,
			"source", verr.Item.Source,
		}, context...)
		r.log.Warn("item rejected", args...)
		return
	}
	r.log.Error("feed run failed", append([]any{"error", err}, context...)...)
}
