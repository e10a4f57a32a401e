package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	config "github.com/NordCoder/Stockpulse/internal/config/api"
	"github.com/NordCoder/Stockpulse/internal/repository/kafka"
)

func TestInitAudit_LogOnlyWhenKafkaDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := &config.Config{}

	sink, closeAudit := initAudit(context.Background(), cfg, zap.New(core))
	defer closeAudit()

	require.NotNil(t, sink)
	require.Zero(t, logs.FilterMessage("audit kafka sink enabled").Len())
}

func TestInitAudit_WarnsWhenTopicCannotBeEnsured(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := &config.Config{}
	cfg.Audit.Kafka = config.Kafka{Enable: true, Topic: "stockpulse.audit"}

	_, closeAudit := initAudit(context.Background(), cfg, zap.New(core))
	closeAudit()

	warned := logs.FilterMessage("audit topic not ensured, publishing anyway").All()
	require.Len(t, warned, 1)
	require.Equal(t, kafka.ErrNoBrokers.Error(), warned[0].ContextMap()["error"])
}
