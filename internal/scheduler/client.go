package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"leadrouter_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues background tasks. A nil Client is a no-op, so callers can
// run without Redis in development.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleSinkRetry enqueues a delayed re-push for a failed sheet sync.
func (c *Client) ScheduleSinkRetry(ctx context.Context, distributionID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewSinkRetryTask(SinkRetryPayload{DistributionID: distributionID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(time.Minute),
		asynq.MaxRetry(10),
		asynq.Queue(c.queue),
	)
	return err
}

// EnqueueBatchQuotaCompleted hands the quota-full notification to the worker.
func (c *Client) EnqueueBatchQuotaCompleted(ctx context.Context, payload BatchQuotaCompletedPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewBatchQuotaCompletedTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
