package alerts

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

// SinkFromConfig builds the configured sinks. Several sinks are combined with MultiSink.
func SinkFromConfig(ctx context.Context, cfg configtypes.AlertsConfig, environment string, logger *zap.Logger) (Sink, error) {
	names := cfg.Sinks
	if len(names) == 0 {
		names = []string{configtypes.AlertSinkLog}
	}

	sinks := make([]Sink, 0, len(names))
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	for _, name := range names {
		var (
			sink Sink
			err  error
		)

		switch name {
		case configtypes.AlertSinkLog:
			sink = NewLogSink(logger)
		case configtypes.AlertSinkFile:
			sink, err = NewFileSink(cfg.File)
		case configtypes.AlertSinkWebhook:
			sink, err = NewWebhookSink(cfg.Webhook, environment, logger)
		case configtypes.AlertSinkClickHouse:
			sink, err = NewClickHouseSink(ctx, cfg.ClickHouse, logger)
		default:
			err = fmt.Errorf("unknown alert sink %q", name)
		}

		if err != nil {
			closeAll()
			return nil, fmt.Errorf("alert sink %s: %w", name, err)
		}
		sinks = append(sinks, sink)
	}

	logger.Info("Alert sinks configured", zap.Strings("sinks", names))

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
