package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/seminarly/backend/pkg/queue"
)

// AlertProcessor drains near-capacity alert jobs: each alert is recorded in
// the capacity_alerts table for monitoring and logged.
type AlertProcessor struct {
	pool   *pgxpool.Pool
	queue  *queue.Queue
	logger *zap.Logger
}

// NewAlertProcessor creates a capacity alert processor.
func NewAlertProcessor(pool *pgxpool.Pool, q *queue.Queue, logger *zap.Logger) *AlertProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertProcessor{pool: pool, queue: q, logger: logger}
}

// Process executes one capacity alert job.
func (p *AlertProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeCapacityAlert {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.CapacityAlertPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	const q = `INSERT INTO capacity_alerts (seminar_id, registered, max_vacancies, occupancy)
		VALUES ($1, $2, $3, $4)`
	if _, err := p.pool.Exec(ctx, q, payload.SeminarID, payload.Registered, payload.MaxVacancies, payload.Occupancy); err != nil {
		return fmt.Errorf("insert capacity alert: %w", err)
	}

	p.logger.Warn("seminar near capacity",
		zap.String("seminar_id", payload.SeminarID.String()),
		zap.Int("registered", payload.Registered),
		zap.Int("max_vacancies", payload.MaxVacancies),
		zap.Float64("occupancy", payload.Occupancy),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AlertProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("capacity alert worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
