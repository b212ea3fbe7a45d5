package alerts

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes alerts to the service log
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("alerts")}
}

func (s *LogSink) Send(_ context.Context, alert Alert) error {
	fields := make([]zap.Field, 0, len(alert.Context)+2)
	fields = append(fields,
		zap.String("severity", string(alert.Severity)),
		zap.Time("created_at", alert.CreatedAt))
	for k, v := range alert.Context {
		fields = append(fields, zap.String(k, v))
	}

	switch alert.Severity {
	case SeverityError:
		s.logger.Error(alert.Message, fields...)
	case SeverityInfo:
		s.logger.Info(alert.Message, fields...)
	default:
		s.logger.Warn(alert.Message, fields...)
	}
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
