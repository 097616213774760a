package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nadzzz/scriptvoice/internal/config"
)

// Client enqueues render tasks.
type Client struct {
	client *asynq.Client
}

// RedisOpt converts redis config to asynq connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueRender submits a render and returns its id. The id doubles as the
// asynq task id, so resubmitting the same id is rejected while the first
// task is still retained.
func (c *Client) EnqueueRender(ctx context.Context, payload RenderPayload) (string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	if _, err := OutputPath("", payload.ID, payload.Format); err != nil {
		return "", err
	}
	err := c.enqueue(ctx, TypeRenderScript, payload,
		asynq.TaskID(payload.ID),
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return "", err
	}
	return payload.ID, nil
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return fmt.Errorf("enqueue %s: %w: %v", taskType, ErrDuplicateJob, err)
		}
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
