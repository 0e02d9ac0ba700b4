package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/service"
)

// TriageJob is the queued unit of work produced by the webhook handler
// and consumed by the background workers.
type TriageJob struct {
	ID         string               `json:"id"`
	Payload    domain.TicketPayload `json:"payload"`
	EnqueuedAt time.Time            `json:"enqueued_at"`
}

// Queue is the Redis-backed triage job queue. The webhook responder
// only enqueues, so it never blocks on classification or helpdesk
// round-trips.
type Queue struct {
	client   *redis.Client
	queueKey string
	logger   *zap.Logger
}

// NewQueue wraps a Redis client as a job queue.
func NewQueue(client *redis.Client, queueKey string, logger *zap.Logger) *Queue {
	return &Queue{client: client, queueKey: queueKey, logger: logger}
}

// Enqueue pushes a ticket payload onto the queue.
func (q *Queue) Enqueue(ctx context.Context, payload domain.TicketPayload) error {
	job := TriageJob{
		ID:         uuid.NewString(),
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.queueKey, encoded).Err(); err != nil {
		return err
	}
	q.logger.Info("ticket queued",
		zap.String("job_id", job.ID),
		zap.Int64("external_id", payload.ExternalID))
	return nil
}

// dequeue blocks until a job is available or the poll interval lapses.
func (q *Queue) dequeue(ctx context.Context) (*TriageJob, error) {
	result, err := q.client.BRPop(ctx, 5*time.Second, q.queueKey).Result()
	if err != nil {
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(result) != 2 {
		return nil, errors.New("unexpected BRPOP reply shape")
	}
	var job TriageJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// StartTriageWorkers launches concurrency goroutines that consume the
// queue and run the triage pipeline. Workers stop when ctx is
// cancelled. Tickets may be processed concurrently; two concurrent
// runs for the same external id are last-write-wins on the record.
func StartTriageWorkers(ctx context.Context, queue *Queue, triageService *service.TriageService, concurrency int, logger *zap.Logger) {
	if concurrency <= 0 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		go runWorker(ctx, queue, triageService, logger.With(zap.Int("worker", i)))
	}
	logger.Info("triage workers started", zap.Int("concurrency", concurrency))
}

func runWorker(ctx context.Context, queue *Queue, triageService *service.TriageService, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("triage worker stopping")
			return
		default:
		}

		job, err := queue.dequeue(ctx)
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			logger.Warn("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		result := triageService.ProcessTicket(ctx, job.Payload)
		if !result.Success {
			logger.Error("triage run failed",
				zap.String("job_id", job.ID),
				zap.Int64("external_id", job.Payload.ExternalID),
				zap.String("error", result.Error))
			continue
		}
		logger.Info("triage run complete",
			zap.String("job_id", job.ID),
			zap.Int64("external_id", result.ExternalID),
			zap.String("tier", string(result.Tier)),
			zap.Bool("auto_resolved", result.AutoResolved),
			zap.Bool("escalated", result.Escalated))
	}
}
