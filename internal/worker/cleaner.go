package worker

import (
	"context"
	"log"
)

// AssetDestroyer is the slice of the asset store the cleaner needs.
type AssetDestroyer interface {
	Destroy(ctx context.Context, publicID string) error
}

// AssetCleaner releases image assets on behalf of the task store. It tries
// the release inline; when that fails, the public id goes onto the cleanup
// queue so the worker can retry it with backoff instead of orphaning the
// asset silently.
type AssetCleaner struct {
	store AssetDestroyer
	queue *JobQueue
}

func NewAssetCleaner(store AssetDestroyer, queue *JobQueue) *AssetCleaner {
	return &AssetCleaner{store: store, queue: queue}
}

func (c *AssetCleaner) Release(ctx context.Context, publicID string) error {
	err := c.store.Destroy(ctx, publicID)
	if err == nil {
		return nil
	}

	if c.queue == nil {
		return err
	}

	if qErr := c.queue.Enqueue(QueueCleanup, JobTypeAssetRelease, map[string]string{
		"public_id": publicID,
	}); qErr != nil {
		log.Printf("Failed to queue asset release for %s: %v", publicID, qErr)
		return err
	}

	log.Printf("Queued asset release for %s after inline failure: %v", publicID, err)
	return nil
}

// ReleaseHandler is the worker-side counterpart: it performs the queued
// release attempts.
func ReleaseHandler(store AssetDestroyer) JobHandler {
	return func(ctx context.Context, job *Job) error {
		publicID := job.Payload["public_id"]
		if publicID == "" {
			return nil
		}
		return store.Destroy(ctx, publicID)
	}
}
