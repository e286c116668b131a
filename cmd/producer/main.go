package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/ttd2089/resizable-ringbuf/internal/config"
	"github.com/ttd2089/resizable-ringbuf/internal/logging"
	"github.com/ttd2089/resizable-ringbuf/internal/messages"
	"github.com/ttd2089/resizable-ringbuf/internal/ratelimit"
)

const envPrefix = "RINGLIMIT"

type appConfig struct {
	BootstrapServers string        `config_key:"kafka.producer.bootstrap-servers"`
	ProduceTopic     string        `config_key:"kafka.producer.topic" config_default:"messages"`
	MaxRate          int           `config_key:"producer.max-rate" config_default:"1000"`
	RatePeriod       time.Duration `config_key:"producer.rate-period" config_default:"1s"`
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

	sends, err := ratelimit.NewWindow(cfg.MaxRate, cfg.RatePeriod)
	if err != nil {
		return fmt.Errorf("create rate limit window: %w", err)
	}

	producer, err := buildProducer(cfg)
	if err != nil {
		return fmt.Errorf("build Kafka producer: %w", err)
	}

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer producer.Close()
		produce(ctx, logger, cfg, producer, sends)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range producer.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.Error("produce message", "err", ev.TopicPartition.Error)
				}
			}
		}
	}()

	wg.Wait()

	return nil
}

var (
	customerIDs = []string{
		"faa108f9-0815-4035-89c4-403b4f2f7948",
		"e62358f4-47bb-4a45-9db3-a1c5ad6cdab2",
		"139b70a3-60e8-47a0-9b7d-d8a369d18417",
		"432556b3-0a3b-4dbb-83fc-187115228f67",
	}
	types = []string{
		"foo",
		"bar",
		"baz",
	}
)

func produce(
	ctx context.Context,
	logger *slog.Logger,
	cfg appConfig,
	producer *kafka.Producer,
	sends *ratelimit.Window,
) {
	interval := cfg.RatePeriod / time.Duration(cfg.MaxRate)

	for !isCancelled(ctx) {

		// Make message publishing "naturally" use ~90% of its rate limit. This will ensure we
		// hit the rate limit but smooth it out some instead of sending in predictable batches.
		if interval > 0 {
			naturalDelay := (rand.Int63n(int64(interval)) * 9) / 10
			if !sleep(ctx, time.Duration(naturalDelay)) {
				return
			}
		}

		msg := randomMessage()
		msgValue, err := json.Marshal(msg)
		if err != nil {
			panic(fmt.Errorf("failed to marshal messages.Message to JSON: %v", err))
		}

		delay, err := sends.Reserve(time.Now())
		if err != nil {
			logger.Error("reserve send", "err", err)
			continue
		}
		if delay > 0 {
			logger.Debug("delaying for rate limit", "delay", delay)
			if !sleep(ctx, delay) {
				return
			}
		}

		err = producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{
				Topic:     &cfg.ProduceTopic,
				Partition: kafka.PartitionAny,
			},
			Key:       []byte(msg.Key()),
			Value:     msgValue,
			Timestamp: time.Now(),
		}, nil)
		if err != nil {
			logger.Error("produce message", "err", err)
		}
	}
}

func randomMessage() messages.Message {
	customerID := customerIDs[rand.Int()%len(customerIDs)]
	type_ := types[rand.Int()%len(types)]
	return messages.Message{
		CustomerID: customerID,
		Type:       type_,
		Body:       fmt.Sprintf("[%v]: %q message for customer %q", time.Now(), type_, customerID),
	}
}

func buildProducer(cfg appConfig) (*kafka.Producer, error) {
	kp, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
	})
	if err != nil {
		return nil, fmt.Errorf("create Kafka producer: %w", err)
	}
	return kp, nil
}

// sleep waits for d and reports false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
