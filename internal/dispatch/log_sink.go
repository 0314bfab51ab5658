package dispatch

import (
	"context"
	"log"
	"strings"

	"polymarket-watch/internal/domain"
)

// LogSink writes alerts to the process log. Always configured; it is
// the audit trail of record even when outbound sinks are enabled.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger}
}

var _ Sink = (*LogSink)(nil)

// Name identifies the sink.
func (s *LogSink) Name() string { return "log" }

// Deliver writes one alert as a single log record.
func (s *LogSink) Deliver(_ context.Context, a *domain.AlertRecord) error {
	flags := make([]string, 0, len(a.Flags))
	for _, f := range a.Flags {
		flags = append(flags, f.Name)
	}
	s.logger.Printf("ALERT id=%s market=%s score=%.1f wallets=%d flags=%s",
		a.ID, a.MarketID, a.Score, len(a.Wallets), strings.Join(flags, ","))
	return nil
}
