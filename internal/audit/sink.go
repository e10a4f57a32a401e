package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/domain/audit"
	"github.com/NordCoder/Stockpulse/internal/obs"
)

var (
	_ audit.Sink = (*LogSink)(nil)
	_ audit.Sink = Multi(nil)
	_ audit.Sink = Nop{}
)

// LogSink writes events to the structured log.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log.With(zap.String("component", "audit"))}
}

func (s *LogSink) Record(ctx context.Context, e audit.Event) {
	e = normalize(e)
	l := obs.WithTrace(ctx, s.log)
	fields := []zap.Field{
		zap.String("event_service", e.Service),
		zap.String("status", string(e.Status)),
		zap.Time("event_ts", e.Timestamp),
	}
	if len(e.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", e.Metadata))
	}
	switch e.Status {
	case audit.StatusError:
		l.Error(e.Message, fields...)
	case audit.StatusWarning:
		l.Warn(e.Message, fields...)
	default:
		l.Info(e.Message, fields...)
	}
}

// Multi fans an event out to every sink in order.
type Multi []audit.Sink

func (m Multi) Record(ctx context.Context, e audit.Event) {
	e = normalize(e)
	for _, s := range m {
		if s != nil {
			s.Record(ctx, e)
		}
	}
}

type Nop struct{}

func (Nop) Record(context.Context, audit.Event) {}

func normalize(e audit.Event) audit.Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = audit.StatusSuccess
	}
	return e
}
