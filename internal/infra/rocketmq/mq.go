package rocketmq

import (
	"context"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"

	"lotto-server/common/logger"

	"go.uber.org/zap"
)

// Publisher sends one message body to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// Options configures the producer. An empty Endpoint disables MQ.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Topics    []string
	// StartTimeout bounds producer start; default 2s.
	StartTimeout time.Duration
}

var (
	mu      sync.Mutex
	enabled bool
	prod    rmq.Producer
	pub     Publisher = &stubPublisher{}
)

// Enabled reports whether a producer is running.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// PublisherInstance returns the active publisher (stub when disabled).
func PublisherInstance() Publisher {
	mu.Lock()
	defer mu.Unlock()
	return pub
}

// rmqPublisher is backed by the RocketMQ v5 client.
type rmqPublisher struct{ p rmq.Producer }

func (r *rmqPublisher) Publish(ctx context.Context, topic string, body []byte) error {
	msg := &rmq.Message{Topic: topic, Body: body}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	_, err := r.p.Send(ctx, msg)
	return err
}

// stubPublisher drops messages; used while MQ is disabled. Outbox rows still
// get marked sent, the table itself is the record.
type stubPublisher struct{}

func (s *stubPublisher) Publish(_ context.Context, topic string, body []byte) error {
	logger.Debug("[mq disabled] drop message", zap.String("topic", topic), zap.Int("bytes", len(body)))
	return nil
}

// NormalizeEndpoint trims the scheme and keeps the first address of a list.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}
	return endpoint
}

// Init starts the producer. Every failure falls back to the stub publisher;
// MQ is never required for the engine to work.
func Init(opts Options) {
	rmq.ResetLogger()

	endpoint := NormalizeEndpoint(opts.Endpoint)
	if endpoint == "" {
		logger.Info("rocketmq disabled: no endpoint")
		return
	}
	// the SDK panics while signing without credentials
	if strings.TrimSpace(opts.AccessKey) == "" || strings.TrimSpace(opts.SecretKey) == "" {
		logger.Warn("rocketmq disabled: missing access/secret key while endpoint present")
		return
	}

	cfg := &rmq.Config{
		Endpoint:    endpoint,
		Credentials: &credentials.SessionCredentials{AccessKey: opts.AccessKey, AccessSecret: opts.SecretKey},
	}

	var popts []rmq.ProducerOption
	if len(opts.Topics) > 0 {
		topics := make([]string, 0, len(opts.Topics))
		for _, t := range opts.Topics {
			if t = strings.TrimSpace(strings.ReplaceAll(t, ".", "_")); t != "" {
				topics = append(topics, t)
			}
		}
		popts = append(popts, rmq.WithTopics(topics...))
		logger.Info("rocketmq: topics configured", zap.Strings("topics", topics))
	}

	p, err := rmq.NewProducer(cfg, popts...)
	if err != nil {
		logger.Error("rocketmq: producer init failed", zap.Error(err))
		return
	}

	timeout := opts.StartTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	startDone := make(chan error, 1)
	go func() { startDone <- p.Start() }()

	select {
	case err := <-startDone:
		if err != nil {
			logger.Warn("rocketmq: producer start failed, using stub publisher", zap.Error(err))
			return
		}
	case <-time.After(timeout):
		logger.Warn("rocketmq: producer start timeout, using stub publisher")
		return
	}

	mu.Lock()
	prod = p
	pub = &rmqPublisher{p: p}
	enabled = true
	mu.Unlock()
	logger.Info("rocketmq enabled", zap.String("endpoint", endpoint))
}

// Shutdown stops the producer and restores the stub.
func Shutdown() {
	mu.Lock()
	p := prod
	prod, pub, enabled = nil, &stubPublisher{}, false
	mu.Unlock()
	if p != nil {
		if err := p.GracefulStop(); err != nil {
			logger.Warn("rocketmq: graceful stop failed", zap.Error(err))
		}
	}
}
