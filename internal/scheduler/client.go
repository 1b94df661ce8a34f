package scheduler

import (
	"context"
	"errors"

	"skaleclub_backend/platform/config"
	"skaleclub_backend/platform/redisclient"

	"github.com/hibiken/asynq"
)

const hotLeadMaxRetry = 8

type Client struct {
	client *asynq.Client
	queue  string
}

// HotLeadScheduler queues HOT lead notifications for delivery by the worker.
type HotLeadScheduler interface {
	ScheduleHotLeadNotification(ctx context.Context, payload HotLeadNotificationPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleHotLeadNotification enqueues the notification once per lead. A
// task already queued for the same lead is not an error.
func (c *Client) ScheduleHotLeadNotification(ctx context.Context, payload HotLeadNotificationPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewHotLeadNotificationTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(hotLeadTaskID(payload.LeadID)),
		asynq.MaxRetry(hotLeadMaxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func hotLeadTaskID(leadID string) string {
	return "hot-lead:" + leadID
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opt, err := redisclient.Options(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
