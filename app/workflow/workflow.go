package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/ugc-review/app/blob"
	"github.com/lysyi3m/ugc-review/app/chat"
	"github.com/lysyi3m/ugc-review/app/database"
	"github.com/lysyi3m/ugc-review/app/format"
	"github.com/lysyi3m/ugc-review/app/links"
	"github.com/lysyi3m/ugc-review/app/oracle"
)

// Stored review text handed to comment generation is capped at this many
// characters.
const commentContextLimit = 1500

// BlobStore holds local copies of submitted videos while they are scored.
type BlobStore interface {
	Fetch(ctx context.Context, src blob.Source) (blob.Handle, error)
	Delete(h blob.Handle) error
}

var _ BlobStore = (*blob.Store)(nil)

type Options struct {
	Approvals         database.ApprovalRepository
	Blobs             BlobStore
	Scorer            oracle.Scorer
	Generator         oracle.Generator
	Poster            chat.Poster
	Identity          chat.Identity
	SubmissionChannel string
	ApprovedChannel   string
	Threshold         int
}

// Workflow drives each thread from submission through approval to
// publication of engagement comments.
type Workflow struct {
	approvals         database.ApprovalRepository
	blobs             BlobStore
	scorer            oracle.Scorer
	generator         oracle.Generator
	poster            chat.Poster
	identity          chat.Identity
	submissionChannel string
	approvedChannel   string
	threshold         int
	threads           *keyedMutex
	now               func() time.Time
}

func New(opts Options) *Workflow {
	return &Workflow{
		approvals:         opts.Approvals,
		blobs:             opts.Blobs,
		scorer:            opts.Scorer,
		generator:         opts.Generator,
		poster:            opts.Poster,
		identity:          opts.Identity,
		submissionChannel: opts.SubmissionChannel,
		approvedChannel:   opts.ApprovedChannel,
		threshold:         opts.Threshold,
		threads:           newKeyedMutex(),
		now:               time.Now,
	}
}

// Handle routes one inbound event. Errors are scoped to the event and have
// already been reported to its thread when possible.
func (w *Workflow) Handle(ctx context.Context, event chat.Event) error {
	decision := Classify(event, w.identity, w.submissionChannel)

	switch decision.Route {
	case RouteSubmission:
		return w.HandleSubmission(ctx, event)
	case RouteReply:
		return w.HandleReply(ctx, event)
	default:
		slog.Debug("Event ignored", "event_id", event.ID, "channel", event.Channel, "reason", decision.Reason)
		return nil
	}
}

// HandleSubmission scores the first video on event and records an approval
// when the score clears the threshold.
func (w *Workflow) HandleSubmission(ctx context.Context, event chat.Event) error {
	video, ok := event.FirstVideo()
	if !ok {
		return nil
	}

	threadID := event.ThreadID()
	caption := strings.TrimSpace(event.Text)

	if len(event.Files) > 1 {
		slog.Info("Multiple attachments on submission, scoring the first video", "thread_id", threadID, "file_id", video.ID)
	}

	w.post(ctx, event.Channel, format.Processing(caption != ""), threadID)

	fail := func(err error) error {
		w.post(ctx, event.Channel, format.ScoringFailed(err), threadID)
		if state, _, lookupErr := w.currentState(ctx, threadID); lookupErr == nil {
			_, _ = w.transition(ctx, threadID, state, InputSubmissionFailed, nil)
		}
		return fmt.Errorf("submission %s failed: %w", threadID, err)
	}

	review, err := w.score(ctx, video, caption)
	if err != nil {
		return fail(err)
	}

	rendered := review.Render()
	if err := w.send(ctx, event.Channel, format.ReviewComplete(rendered), threadID); err != nil {
		return fail(err)
	}

	state, _, err := w.currentState(ctx, threadID)
	if err != nil {
		return fail(err)
	}

	score := review.OverallScore
	if !oracle.IsApproved(&score, w.threshold) {
		_, err := w.transition(ctx, threadID, state, InputSubmissionRejected, nil)
		slog.Info("Submission below threshold", "thread_id", threadID, "score", score, "threshold", w.threshold)
		return err
	}

	approval := &database.Approval{
		ThreadID:     threadID,
		PosterID:     event.User,
		ChannelID:    event.Channel,
		Score:        &score,
		ReviewText:   rendered,
		ViralityTier: review.ViralityTier,
		Caption:      caption,
		CreatedAt:    w.now(),
	}

	state, err = w.transition(ctx, threadID, state, InputSubmissionApproved, approval)
	if err != nil {
		return fail(err)
	}

	if err := w.send(ctx, event.Channel, format.ApprovalPrompt(score, review.ViralityTier), threadID); err != nil {
		// Without the prompt the poster never learns to reply, so the record
		// would only go stale.
		if _, rollbackErr := w.transition(ctx, threadID, state, InputPromptFailed, nil); rollbackErr != nil {
			slog.Error("Failed to roll back approval", "thread_id", threadID, "error", rollbackErr)
		}
		return fail(err)
	}

	slog.Info("Submission approved", "thread_id", threadID, "poster_id", event.User, "score", score, "tier", review.ViralityTier)
	return nil
}

// score fetches the video, runs the scorer and removes the local copy again,
// whatever the outcome.
func (w *Workflow) score(ctx context.Context, video chat.File, caption string) (*oracle.VideoReview, error) {
	handle, err := w.blobs.Fetch(ctx, blob.Source{
		ID:       video.ID,
		Name:     video.Name,
		URL:      video.DownloadURL,
		MimeType: video.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	defer func() {
		if err := w.blobs.Delete(handle); err != nil {
			slog.Warn("Failed to delete local video", "path", handle.Path, "error", err)
		}
	}()

	start := time.Now()
	review, err := w.scorer.Score(ctx, handle.Path, handle.MimeType, caption)
	if err != nil {
		return nil, err
	}

	slog.Debug("Video scored", "file_id", video.ID, "score", review.OverallScore, "duration", time.Since(start))
	return review, nil
}

// HandleReply turns a poster's links into engagement comments and publishes
// them. Replies within one thread are handled one at a time.
func (w *Workflow) HandleReply(ctx context.Context, event chat.Event) error {
	threadID := event.ThreadID()

	unlock := w.threads.Lock(threadID)
	defer unlock()

	state, approval, err := w.currentState(ctx, threadID)
	if err != nil {
		return err
	}

	if approval == nil {
		_, err := w.transition(ctx, threadID, state, InputReplyNoRecord, nil)
		return err
	}

	if event.User != approval.PosterID {
		slog.Debug("Reply from someone other than the poster", "thread_id", threadID, "user", event.User)
		_, err := w.transition(ctx, threadID, state, InputReplyUnauthorized, nil)
		return err
	}

	found := links.Extract(event.Text)
	if found.Empty() {
		_, err := w.transition(ctx, threadID, state, InputReplyNoLinks, nil)
		return err
	}

	sections := w.generateSections(ctx, event.Channel, threadID, approval, found.Present())

	message := format.ApprovedMessage(format.ApprovedContent{
		PosterID:     approval.PosterID,
		Score:        approval.Score,
		ViralityTier: approval.ViralityTier,
		Caption:      approval.Caption,
		Sections:     sections,
	})

	if _, err := w.poster.PostMessage(ctx, w.approvedChannel, message, ""); err != nil {
		slog.Error("Failed to publish approved content", "thread_id", threadID, "error", err)
		_, _ = w.transition(ctx, threadID, state, InputReplyPublishFailed, nil)
		w.post(ctx, event.Channel, format.PublishFailed(err), threadID)
		return fmt.Errorf("failed to publish approved content for %s: %w", threadID, err)
	}

	// The content is out, so the poster is told even if the record lingers.
	// A lingering record lets a later reply publish again.
	_, err = w.transition(ctx, threadID, state, InputReplyPublished, nil)
	if err != nil {
		slog.Error("Failed to clear approval after publishing", "thread_id", threadID, "error", err)
	}

	w.post(ctx, event.Channel, format.Published(), threadID)

	slog.Info("Approved content published", "thread_id", threadID, "platforms", len(sections))
	return err
}

// generateSections asks for comments per platform. A failed platform becomes
// an error section and does not stop the others.
func (w *Workflow) generateSections(ctx context.Context, channel, threadID string, approval *database.Approval, found []links.Link) []format.CommentSection {
	sections := make([]format.CommentSection, 0, len(found))

	for _, link := range found {
		w.post(ctx, channel, format.Generating(link.Platform), threadID)

		comments, err := w.generator.Generate(ctx, oracle.GenerateRequest{
			Platform: link.Platform,
			PostURL:  link.URL,
			Context:  truncate(approval.ReviewText, commentContextLimit),
			Caption:  approval.Caption,
		})
		if err != nil {
			slog.Warn("Comment generation failed", "thread_id", threadID, "platform", link.Platform, "error", err)
		}

		sections = append(sections, format.CommentSection{
			Platform: link.Platform,
			URL:      link.URL,
			Comments: comments,
			Err:      err,
		})
	}

	return sections
}

func (w *Workflow) currentState(ctx context.Context, threadID string) (State, *database.Approval, error) {
	approval, err := w.approvals.GetApproval(ctx, threadID)
	if err != nil {
		return StateNone, nil, fmt.Errorf("failed to load approval for %s: %w", threadID, err)
	}
	if approval == nil {
		return StateNone, nil, nil
	}
	return StatePendingLinks, approval, nil
}

// transition applies the store action the table prescribes for input.
func (w *Workflow) transition(ctx context.Context, threadID string, from State, input Input, approval *database.Approval) (State, error) {
	to, action, ok := Next(from, input)
	if !ok {
		return from, fmt.Errorf("no transition from %s on %s", from, input)
	}

	switch action {
	case ActionUpsert:
		if approval == nil {
			return from, fmt.Errorf("transition %s requires an approval record", input)
		}
		if err := w.approvals.UpsertApproval(ctx, *approval); err != nil {
			return from, fmt.Errorf("failed to save approval: %w", err)
		}
	case ActionDelete:
		removed, err := w.approvals.DeleteApproval(ctx, threadID)
		if err != nil {
			return from, fmt.Errorf("failed to delete approval: %w", err)
		}
		if !removed {
			slog.Warn("Approval already removed", "thread_id", threadID)
		}
	}

	if to != from {
		slog.Info("Thread state changed", "thread_id", threadID, "from", from, "to", to, "input", input, "action", action)
	} else {
		slog.Debug("Thread state unchanged", "thread_id", threadID, "state", from, "input", input)
	}

	return to, nil
}

// send posts in-thread and returns the error.
func (w *Workflow) send(ctx context.Context, channel, text, threadID string) error {
	_, err := w.poster.PostMessage(ctx, channel, text, threadID)
	return err
}

// post is send for messages whose delivery failure is only logged.
func (w *Workflow) post(ctx context.Context, channel, text, threadID string) {
	if err := w.send(ctx, channel, text, threadID); err != nil {
		slog.Warn("Failed to post message", "channel", channel, "thread_id", threadID, "error", err)
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
