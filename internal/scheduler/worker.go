package scheduler

import (
	"context"
	"fmt"

	"skaleclub_backend/internal/events"
	"skaleclub_backend/platform/config"
	"skaleclub_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskHotLeadNotification, w.handleHotLeadNotification)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleHotLeadNotification hands the queued lead to the notification
// handlers. Their errors are returned so asynq retries delivery.
func (w *Worker) handleHotLeadNotification(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseHotLeadNotificationPayload(task)
	if err != nil {
		return fmt.Errorf("parse hot lead payload: %v: %w", err, asynq.SkipRetry)
	}

	lead, err := payload.Event()
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if w.bus == nil {
		return nil
	}

	return w.bus.PublishSync(ctx, events.HotLeadNotificationDue{
		BaseEvent: events.NewBaseEvent(),
		Lead:      lead,
	})
}
