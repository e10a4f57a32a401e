package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/audit"
	config "github.com/NordCoder/Stockpulse/internal/config/api"
	domainaudit "github.com/NordCoder/Stockpulse/internal/domain/audit"
	"github.com/NordCoder/Stockpulse/internal/repository/kafka"
)

const auditDrainTimeout = 5 * time.Second

func initAudit(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domainaudit.Sink, func()) {
	sinks := audit.Multi{audit.NewLogSink(logger)}
	kc := cfg.Audit.Kafka
	if !kc.Enable {
		return sinks, func() {}
	}

	if err := kafka.EnsureTopic(ctx, kc.Brokers, kafka.TopicSpec{
		Name:              kc.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
		MaxWait:           5 * time.Second,
	}, logger); err != nil {
		logger.Warn("audit topic not ensured, publishing anyway", zap.String("topic", kc.Topic), zap.Error(err))
	}

	producer := kafka.NewProducer(kc.Brokers, kc.Topic).WithLogger(logger)
	ks := audit.NewKafkaSink(producer, logger, audit.KafkaOpts{Timeout: kc.PublishTimeout, Buffer: kc.Buffer})
	sinks = append(sinks, ks)
	logger.Info("audit kafka sink enabled", zap.String("topic", kc.Topic), zap.Int("buffer", kc.Buffer))

	return sinks, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), auditDrainTimeout)
		defer cancel()
		if err := ks.Close(drainCtx); err != nil {
			logger.Warn("audit queue not drained", zap.Error(err))
		}
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close", zap.Error(err))
		}
	}
}
