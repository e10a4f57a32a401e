package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/obs/retry"
)

var ErrNoBrokers = errors.New("kafka: no brokers configured")

type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	// MaxWait bounds how long EnsureTopic waits for partitions to show up.
	MaxWait time.Duration
}

func (s TopicSpec) withDefaults() TopicSpec {
	if s.NumPartitions <= 0 {
		s.NumPartitions = 1
	}
	if s.ReplicationFactor <= 0 {
		s.ReplicationFactor = 1
	}
	if s.MaxWait <= 0 {
		s.MaxWait = 5 * time.Second
	}
	return s
}

var dialPolicy = retry.Policy{
	Name:     "kafka.dial",
	Attempts: 3,
	Backoff:  retry.ExpoJitter{Base: 200 * time.Millisecond, Max: time.Second, Jitter: 0.2},
}

// EnsureTopic creates the topic through the cluster controller if it is
// missing and waits until its partitions are readable. An existing topic is
// not an error; a topic that never becomes readable within MaxWait is.
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if len(brokers) == 0 {
		return ErrNoBrokers
	}
	if spec.Name == "" {
		return errors.New("kafka: topic name is empty")
	}
	spec = spec.withDefaults()
	log = log.With(zap.String("topic", spec.Name))

	conn, err := dial(ctx, brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	cc, err := dial(ctx, net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cc.Close()

	if err := cc.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	}); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		log.Debug("create topic", zap.Error(err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, spec.MaxWait)
	defer cancel()
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		if ps, err := conn.ReadPartitions(spec.Name); err == nil && len(ps) > 0 {
			log.Info("topic ready", zap.Int("partitions", len(ps)))
			return nil
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("topic %q not ready: %w", spec.Name, waitCtx.Err())
		case <-tick.C:
		}
	}
}

func dial(ctx context.Context, addr string) (*kafka.Conn, error) {
	var conn *kafka.Conn
	err := retry.Do(ctx, func() error {
		c, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, dialPolicy)
	return conn, err
}
