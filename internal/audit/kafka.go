package audit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/domain/audit"
	"github.com/NordCoder/Stockpulse/internal/obs/retry"
)

const (
	dropBufferFull    = "buffer_full"
	dropPublishFailed = "publish_failed"
	dropClosed        = "closed"
)

var eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "audit_events_dropped_total",
	Help: "Audit events that never reached the broker.",
}, []string{"reason"})

// Publisher is the part of the Kafka producer the sink uses.
type Publisher interface {
	PublishJSON(ctx context.Context, key []byte, v any) error
}

type KafkaOpts struct {
	// Timeout bounds one event's publish including retries.
	Timeout time.Duration
	// Buffer is the number of events queued before new ones are dropped.
	Buffer int
	Policy *retry.Policy
}

type queued struct {
	ctx   context.Context
	event audit.Event
}

// KafkaSink hands events to a background worker that publishes them keyed by
// service name. Record never waits on the broker; a full queue drops the event.
type KafkaSink struct {
	pub     Publisher
	policy  retry.Policy
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

func NewKafkaSink(pub Publisher, log *zap.Logger, opts KafkaOpts) *KafkaSink {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	policy := retry.PublishPolicy("audit.publish", log)
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	s := &KafkaSink{
		pub:     pub,
		policy:  policy,
		timeout: opts.Timeout,
		log:     log.With(zap.String("component", "audit.kafka")),
		queue:   make(chan queued, opts.Buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *KafkaSink) Record(ctx context.Context, e audit.Event) {
	e = normalize(e)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(e, dropClosed, nil)
		return
	}
	select {
	case s.queue <- queued{ctx: context.WithoutCancel(ctx), event: e}:
	default:
		s.drop(e, dropBufferFull, nil)
	}
}

// Close stops accepting events and waits until the queue drains or ctx ends.
func (s *KafkaSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *KafkaSink) run() {
	defer close(s.done)
	for q := range s.queue {
		s.publish(q)
	}
}

func (s *KafkaSink) publish(q queued) {
	ctx, cancel := context.WithTimeout(q.ctx, s.timeout)
	defer cancel()

	err := retry.Do(ctx, func() error {
		return s.pub.PublishJSON(ctx, []byte(q.event.Service), q.event)
	}, s.policy)
	if err != nil {
		s.drop(q.event, dropPublishFailed, err)
	}
}

func (s *KafkaSink) drop(e audit.Event, reason string, err error) {
	eventsDropped.WithLabelValues(reason).Inc()
	s.log.Warn("audit event dropped",
		zap.String("reason", reason),
		zap.String("event_service", e.Service),
		zap.String("message", e.Message),
		zap.Error(err),
	)
}
