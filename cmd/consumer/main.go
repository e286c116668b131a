package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ttd2089/resizable-ringbuf/internal/config"
	"github.com/ttd2089/resizable-ringbuf/internal/logging"
	"github.com/ttd2089/resizable-ringbuf/internal/messages"
	"github.com/ttd2089/resizable-ringbuf/internal/metrics"
	"github.com/ttd2089/resizable-ringbuf/internal/ratelimit"
)

const envPrefix = "RINGLIMIT"

type appConfig struct {
	HTTPPort         string        `config_key:"http.listen-port" config_default:"8080"`
	BootstrapServers string        `config_key:"kafka.consumer.bootstrap-servers"`
	ConsumerGroupID  string        `config_key:"kafka.consumer.group-id"`
	ConsumeTopic     string        `config_key:"kafka.consumer.topic" config_default:"messages"`
	KeyLimit         int           `config_key:"consumer.key-limit" config_default:"100"`
	KeyPeriod        time.Duration `config_key:"consumer.key-period" config_default:"1s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env := config.EnvMap{Prefix: envPrefix}

	logCfg, err := config.Parse[logging.Config](env)
	if err != nil {
		return fmt.Errorf("parse log config: %w", err)
	}
	logger := logging.New(os.Stderr, logCfg)

	cfg, err := config.Parse[appConfig](env)
	if err != nil {
		return fmt.Errorf("parse app config: %w", err)
	}

	limiter, err := ratelimit.NewKeyed(cfg.KeyLimit, cfg.KeyPeriod)
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}

	registry := prometheus.NewRegistry()
	limiterMetrics, err := metrics.NewLimiter(registry)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	statsServer := newStatsServer(
		fmt.Sprintf(":%s", cfg.HTTPPort),
		logger,
		limiter,
		limiterMetrics,
		registry)
	go func() {
		if err := statsServer.ListenAndServe(); err != nil {
			logger.Error("listen and serve", "err", err)
		}
	}()
	defer func() {
		if err := statsServer.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown stats server", "err", err)
		}
	}()

	consumer, err := buildConsumer(logger, cfg)
	if err != nil {
		return fmt.Errorf("build Kafka consumer: %w", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("close consumer", "err", err)
		}
	}()

	handler := newHandler(logger, limiter, limiterMetrics)

	for !isCancelled(ctx) {
		msg, err := consumer.Consume(ctx)
		if err != nil {
			if isCancelled(ctx) {
				break
			}
			logger.Error("consume", "err", err)
			<-time.After(5 * time.Second)
			continue
		}

		if err := handler.Handle(ctx, msg); err != nil {
			return fmt.Errorf("handle msg: %w", err)
		}

		if err := consumer.Commit(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	return nil
}

type kafkaConsumer struct {
	kc     *kafka.Consumer
	logger *slog.Logger
}

func (kc kafkaConsumer) Close() error {
	return kc.kc.Close()
}

func (kc kafkaConsumer) Consume(ctx context.Context) (messages.Message, error) {
	for !isCancelled(ctx) {
		event := kc.kc.Poll(50)
		switch event := event.(type) {
		case *kafka.Message:
			msg := messages.Message{}
			if err := json.Unmarshal(event.Value, &msg); err != nil {
				kc.logger.Error("decode message", "err", err, "offset", event.TopicPartition.Offset)
				continue
			}
			return msg, nil
		case kafka.PartitionEOF:
			<-time.After(time.Second)
		case kafka.Error:
			kc.logger.Error("consume", "err", event)
		}
	}

	return messages.Message{}, ctx.Err()
}

func (kc kafkaConsumer) Commit(_ context.Context) error {
	_, err := kc.kc.Commit()
	if err != nil {
		return err
	}
	return nil
}

func buildConsumer(logger *slog.Logger, cfg appConfig) (kafkaConsumer, error) {

	kc, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.BootstrapServers,
		"group.id":           cfg.ConsumerGroupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": "false",
	})
	if err != nil {
		return kafkaConsumer{}, fmt.Errorf("create Kafka consumer: %w", err)
	}

	err = kc.Subscribe(cfg.ConsumeTopic, func(c *kafka.Consumer, e kafka.Event) error {
		logger.Info("rebalance", "event", e.String())
		return nil
	})
	if err != nil {
		return kafkaConsumer{}, fmt.Errorf("subscribe: %w", err)
	}

	return kafkaConsumer{
		kc:     kc,
		logger: logger,
	}, nil
}

func newHandler(logger *slog.Logger, limiter *ratelimit.Keyed, observer *metrics.Limiter) handler {
	return handler{
		logger:   logger,
		limiter:  limiter,
		observer: observer,
		now:      time.Now,
	}
}

type handler struct {
	logger   *slog.Logger
	limiter  *ratelimit.Keyed
	observer *metrics.Limiter
	now      func() time.Time
}

// Handle counts msg against its key's window. Throttled messages are logged and dropped.
func (h handler) Handle(_ context.Context, msg messages.Message) error {
	key := msg.Key()
	allowed, stats, err := h.limiter.Allow(key, h.now())
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	h.observer.Observe(key, allowed, stats)
	if !allowed {
		h.logger.Debug("throttled", "key", key, "limit", stats.Limit)
	}
	return nil
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
