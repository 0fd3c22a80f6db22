package audit

import (
	"context"
	"log/slog"
)

// LogSink writes every event as a structured log line
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, events []Event) error {
	for _, e := range events {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "authz decision",
			slog.String("event_id", e.ID.String()),
			slog.String("role", string(e.Role)),
			slog.String("resource", string(e.Resource)),
			slog.String("action", string(e.Action)),
			slog.String("decision", string(e.Decision)),
			slog.Bool("allowed", e.Allowed),
			slog.String("route", e.Route),
			slog.String("request_id", e.RequestID),
		)
	}
	return nil
}
