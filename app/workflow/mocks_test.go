package workflow

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/ugc-review/app/blob"
	"github.com/lysyi3m/ugc-review/app/chat"
	"github.com/lysyi3m/ugc-review/app/database"
	"github.com/lysyi3m/ugc-review/app/links"
	"github.com/lysyi3m/ugc-review/app/oracle"
)

const (
	testSubmissionChannel = "C-REVIEW"
	testApprovedChannel   = "C-APPROVED"
	testPoster            = "U-POSTER"
	testThread            = "1700000000.000100"
)

// MockApprovalRepository keeps approvals in memory
type MockApprovalRepository struct {
	mu        sync.Mutex
	approvals map[string]database.Approval
	upserts   int
	getErr    error
	upsertErr error
	deleteErr error
}

var _ database.ApprovalRepository = (*MockApprovalRepository)(nil)

func NewMockApprovalRepository() *MockApprovalRepository {
	return &MockApprovalRepository{approvals: make(map[string]database.Approval)}
}

func (m *MockApprovalRepository) UpsertApproval(ctx context.Context, approval database.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.approvals[approval.ThreadID] = approval
	return nil
}

func (m *MockApprovalRepository) GetApproval(ctx context.Context, threadID string) (*database.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	approval, ok := m.approvals[threadID]
	if !ok {
		return nil, nil
	}
	return &approval, nil
}

func (m *MockApprovalRepository) DeleteApproval(ctx context.Context, threadID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	_, ok := m.approvals[threadID]
	delete(m.approvals, threadID)
	return ok, nil
}

func (m *MockApprovalRepository) ListApprovals(ctx context.Context) ([]database.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]database.Approval, 0, len(m.approvals))
	for _, a := range m.approvals {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ThreadID < list[j].ThreadID })
	return list, nil
}

func (m *MockApprovalRepository) DeleteApprovalsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, a := range m.approvals {
		if a.CreatedAt.Before(cutoff) {
			delete(m.approvals, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MockApprovalRepository) GetApprovalCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.approvals), nil
}

func (m *MockApprovalRepository) Close() error {
	return nil
}

func (m *MockApprovalRepository) get(threadID string) (database.Approval, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvals[threadID]
	return a, ok
}

// MockBlobStore pretends to download files
type MockBlobStore struct {
	mu       sync.Mutex
	fetchErr error
	fetched  []blob.Source
	deleted  []blob.Handle
}

func (m *MockBlobStore) Fetch(ctx context.Context, src blob.Source) (blob.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return blob.Handle{}, m.fetchErr
	}
	m.fetched = append(m.fetched, src)
	return blob.Handle{Path: "/tmp/ugc/" + src.ID + "_" + src.Name, MimeType: src.MimeType}, nil
}

func (m *MockBlobStore) Delete(h blob.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, h)
	return nil
}

// MockScorer returns a fixed review
type MockScorer struct {
	review   *oracle.VideoReview
	err      error
	calls    int
	captions []string
	paths    []string
}

func (m *MockScorer) Score(ctx context.Context, videoPath, mimeType, caption string) (*oracle.VideoReview, error) {
	m.calls++
	m.captions = append(m.captions, caption)
	m.paths = append(m.paths, videoPath)
	if m.err != nil {
		return nil, m.err
	}
	return m.review, nil
}

// MockGenerator returns canned comments per platform
type MockGenerator struct {
	mu       sync.Mutex
	comments map[links.Platform]string
	errs     map[links.Platform]error
	requests []oracle.GenerateRequest
}

func (m *MockGenerator) Generate(ctx context.Context, req oracle.GenerateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if err := m.errs[req.Platform]; err != nil {
		return "", err
	}
	if text, ok := m.comments[req.Platform]; ok {
		return text, nil
	}
	return "Love this " + string(req.Platform) + " post!", nil
}

type postedMessage struct {
	channel  string
	text     string
	threadTS string
}

// MockPoster records posted messages
type MockPoster struct {
	mu         sync.Mutex
	messages   []postedMessage
	failOn     map[string]error
	failPrefix string
	failErr    error
}

func (m *MockPoster) PostMessage(ctx context.Context, channel, text, threadTS string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[channel]; err != nil {
		return "", err
	}
	if m.failPrefix != "" && strings.HasPrefix(text, m.failPrefix) {
		return "", m.failErr
	}
	m.messages = append(m.messages, postedMessage{channel: channel, text: text, threadTS: threadTS})
	return "1700000001.000200", nil
}

func (m *MockPoster) inChannel(channel string) []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postedMessage
	for _, msg := range m.messages {
		if msg.channel == channel {
			out = append(out, msg)
		}
	}
	return out
}

var errBoom = errors.New("boom")

func testReview(score int, caption bool) *oracle.VideoReview {
	review := &oracle.VideoReview{
		TargetPersona:        "Busy founders",
		HookScore:            20,
		PacingScore:          12,
		NarrativeScore:       15,
		FeatureDemoScore:     12,
		TechnicalScore:       8,
		TrendScore:           4,
		ShareabilityScore:    4,
		FeaturesShown:        []string{"Inbox"},
		FocusRating:          "FOCUSED",
		OverallScore:         score,
		ViralityTier:         oracle.TierHigh,
		KeyStrengths:         []string{"Strong hook"},
		AreasForImprovement:  []string{"Shorter intro"},
		Recommendations:      "Cut the first second.",
		AlternativeHooks:     []string{"Open on the result", "Ask a question"},
		HookAnalysis:         "Grabs attention.",
		PacingAnalysis:       "Brisk.",
		NarrativeAnalysis:    "Clear.",
		FeatureAnalysis:      "Shows the inbox.",
		TechnicalAnalysis:    "Sharp.",
		TrendAnalysis:        "On trend.",
		ShareabilityAnalysis: "Shareable.",
	}
	if caption {
		captionScore := 12
		review.CaptionScore = &captionScore
		review.CaptionAnalysis = "Punchy caption."
	}
	return review
}

type testHarness struct {
	repo      *MockApprovalRepository
	blobs     *MockBlobStore
	scorer    *MockScorer
	generator *MockGenerator
	poster    *MockPoster
	workflow  *Workflow
}

func newTestHarness(review *oracle.VideoReview) *testHarness {
	h := &testHarness{
		repo:      NewMockApprovalRepository(),
		blobs:     &MockBlobStore{},
		scorer:    &MockScorer{review: review},
		generator: &MockGenerator{},
		poster:    &MockPoster{},
	}
	h.workflow = New(Options{
		Approvals:         h.repo,
		Blobs:             h.blobs,
		Scorer:            h.scorer,
		Generator:         h.generator,
		Poster:            h.poster,
		Identity:          chat.Identity{UserID: "U-BOT", BotID: "B-BOT"},
		SubmissionChannel: testSubmissionChannel,
		ApprovedChannel:   testApprovedChannel,
		Threshold:         80,
	})
	h.workflow.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func submissionEvent(caption string) chat.Event {
	return chat.Event{
		ID:      "Ev-SUB",
		Type:    "message",
		Channel: testSubmissionChannel,
		User:    testPoster,
		SubType: chat.SubTypeFileShare,
		Text:    caption,
		TS:      testThread,
		Files: []chat.File{
			{ID: "F-IMG", Name: "cover.png", MimeType: "image/png", DownloadURL: "https://files.example.com/F-IMG"},
			{ID: "F-VID", Name: "clip.mp4", MimeType: "video/mp4", DownloadURL: "https://files.example.com/F-VID"},
		},
	}
}

func replyEvent(user, text string) chat.Event {
	return chat.Event{
		ID:       "Ev-REPLY",
		Type:     "message",
		Channel:  testSubmissionChannel,
		User:     user,
		Text:     text,
		TS:       "1700000050.000300",
		ThreadTS: testThread,
	}
}

func seedApproval(repo *MockApprovalRepository, caption string) database.Approval {
	score := 85
	approval := database.Approval{
		ThreadID:     testThread,
		PosterID:     testPoster,
		ChannelID:    testSubmissionChannel,
		Score:        &score,
		ReviewText:   "*Video Analysis Complete*",
		ViralityTier: oracle.TierHigh,
		Caption:      caption,
		CreatedAt:    time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	repo.approvals[approval.ThreadID] = approval
	return approval
}
