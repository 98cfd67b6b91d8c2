package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type SweepBlobsTask struct {
	Task
	MaxAge  time.Duration
	sweeper BlobSweeper
}

func NewSweepBlobsTask(sweeper BlobSweeper, maxAge time.Duration) *SweepBlobsTask {
	return &SweepBlobsTask{
		Task:    NewTask(TaskTypeSweepBlobs, "blobs"),
		MaxAge:  maxAge,
		sweeper: sweeper,
	}
}

func (t *SweepBlobsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	removed, err := t.sweeper.Sweep(t.MaxAge)
	if err != nil {
		return fmt.Errorf("failed to sweep local videos: %w", err)
	}

	slog.Info("Task completed",
		"type", "SweepBlobs",
		"removed", removed,
		"max_age", t.MaxAge,
		"duration", t.GetDuration())

	return nil
}
