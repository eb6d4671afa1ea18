package events

import (
	"context"

	"insure-crm/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewBus picks the bus named by EVENT_BUS and ties it to the app lifecycle.
func NewBus(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) Bus {
	if cfg.EventBus == "kafka" {
		bus := NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				bus.Start()
				logger.Info("Kafka event bus started",
					zap.Strings("brokers", cfg.KafkaBrokers),
					zap.String("topic", cfg.KafkaTopic))
				return nil
			},
			OnStop: bus.Close,
		})
		return bus
	}

	bus := NewLocalBus(logger)
	lc.Append(fx.Hook{OnStop: bus.Close})
	return bus
}
