package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vidya-portal/backend/pkg/queue"
	"github.com/vidya-portal/backend/pkg/storage"
)

// BlobCleanupProcessor drains blob deletion jobs enqueued when a
// blob-backed record is removed. The metadata row is already gone when a
// job runs, so a job failing past its retries leaves an orphaned object
// in S3, logged for operator cleanup.
type BlobCleanupProcessor struct {
	s3     *storage.S3
	queue  *queue.Queue
	logger *zap.Logger
}

// NewBlobCleanupProcessor creates a blob cleanup processor.
func NewBlobCleanupProcessor(s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *BlobCleanupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobCleanupProcessor{s3: s3, queue: q, logger: logger}
}

// Process executes one blob deletion job.
func (p *BlobCleanupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeBlobDelete {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.BlobDeletePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := p.s3.DeleteObject(ctx, payload.Bucket, payload.Key); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", payload.Bucket, payload.Key, err)
	}

	p.logger.Info("blob deleted",
		zap.String("bucket", payload.Bucket),
		zap.String("key", payload.Key),
		zap.String("entity_type", payload.EntityType),
		zap.String("entity_id", payload.EntityID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *BlobCleanupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("blob cleanup worker stopping")
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
