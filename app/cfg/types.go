package cfg

import "time"

const (
	CommentProviderGemini = "gemini"
	CommentProviderOpenAI = "openai"
)

type Cfg struct {
	// Slack configuration
	SlackBotToken          string
	SlackSigningSecret     string
	SlackAPIURL            string
	VideoReviewChannel     string
	ApprovedContentChannel string

	// AI configuration
	GeminiAPIKey      string
	GeminiModel       string
	CommentProvider   string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	PromptsFile       string
	ScoreThreshold    int
	ProcessingTimeout time.Duration
	PollInterval      time.Duration

	// Storage configuration
	DatabaseURL     string
	DataDir         string
	DedupeURL       string
	TempDir         string
	BlobMaxAge      time.Duration
	ApprovalMaxAge  time.Duration
	CleanupInterval time.Duration

	// Application configuration
	Port         string
	WorkerCount  int
	APIAccessKey string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
