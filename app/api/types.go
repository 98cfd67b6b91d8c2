package api

import (
	"time"

	"github.com/lysyi3m/ugc-review/app/chat"
	"github.com/lysyi3m/ugc-review/app/database"
	"github.com/lysyi3m/ugc-review/app/tasks"
)

type HandlerOptions struct {
	Approvals     database.ApprovalRepository
	Scheduler     tasks.TaskSchedulerInterface
	Events        tasks.EventHandler
	Deduper       chat.Deduper
	Sweeper       tasks.BlobSweeper
	SigningSecret string
	BlobMaxAge    time.Duration
}

type Handler struct {
	approvals     database.ApprovalRepository
	scheduler     tasks.TaskSchedulerInterface
	events        tasks.EventHandler
	deduper       chat.Deduper
	sweeper       tasks.BlobSweeper
	signingSecret string
	blobMaxAge    time.Duration
}
