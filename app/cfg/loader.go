package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/subosito/gotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Slack configuration
	SlackBotToken          string `long:"slack-bot-token" env:"SLACK_BOT_TOKEN" description:"Slack bot token (required)" required:"true"`
	SlackSigningSecret     string `long:"slack-signing-secret" env:"SLACK_SIGNING_SECRET" description:"Slack signing secret (required)" required:"true"`
	SlackAPIURL            string `long:"slack-api-url" env:"SLACK_API_URL" description:"Override Slack API base URL"`
	VideoReviewChannel     string `long:"video-review-channel" env:"VIDEO_REVIEW_CHANNEL" description:"Channel ID where videos are submitted (required)" required:"true"`
	ApprovedContentChannel string `long:"approved-content-channel" env:"APPROVED_CONTENT_CHANNEL" description:"Channel ID where approved content is published (required)" required:"true"`

	// AI configuration
	GeminiAPIKey      string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key (required)" required:"true"`
	GeminiModel       string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.0-flash" description:"Gemini model used for scoring"`
	CommentProvider   string `long:"comment-provider" env:"COMMENT_PROVIDER" default:"gemini" choice:"gemini" choice:"openai" description:"Provider used to generate engagement comments"`
	OpenAIAPIKey      string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key (required when comment provider is openai)"`
	OpenAIModel       string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI model used for comments"`
	OpenAIBaseURL     string `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"Override OpenAI API base URL"`
	PromptsFile       string `long:"prompts-file" env:"PROMPTS_FILE" description:"YAML file overriding platform comment guidelines"`
	ScoreThreshold    int    `long:"score-threshold" env:"SCORE_THRESHOLD" default:"80" description:"Minimum overall score (0-100) for approval"`
	ProcessingTimeout int    `long:"processing-timeout" env:"PROCESSING_TIMEOUT" default:"300" description:"Maximum wait for video processing in seconds"`
	PollInterval      int    `long:"poll-interval" env:"POLL_INTERVAL" default:"2" description:"Video processing poll interval in seconds"`

	// Storage configuration
	DatabaseURL     string `long:"database-url" env:"DATABASE_URL" description:"Approval store URL (sqlite://, valkey://, dynamodb://); embedded sqlite when empty"`
	DataDir         string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for the embedded database"`
	DedupeURL       string `long:"dedupe-url" env:"DEDUPE_URL" description:"Valkey URL for shared event deduplication (optional)"`
	TempDir         string `long:"temp-dir" env:"TEMP_DIR" description:"Directory for downloaded videos (default: <os temp>/ugc_videos)"`
	BlobMaxAge      int    `long:"blob-max-age" env:"BLOB_MAX_AGE" default:"86400" description:"Age in seconds after which downloaded videos are removed"`
	ApprovalMaxAge  int    `long:"approval-max-age" env:"APPROVAL_MAX_AGE" default:"0" description:"Age in seconds after which pending approvals are purged (0 keeps them)"`
	CleanupInterval int    `long:"cleanup-interval" env:"CLEANUP_INTERVAL" default:"3600" description:"Cleanup interval in seconds"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for event processing"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads the dotenv file named by ENV_FILE (default .env), then parses
// flags and environment. It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := loadEnvFile(cmp.Or(os.Getenv("ENV_FILE"), ".env")); err != nil {
		return nil, err
	}

	cfg, err := parse(os.Args[1:])
	if err != nil || cfg == nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// loadEnvFile exports variables from path without overriding ones already set.
func loadEnvFile(path string) error {
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		SlackBotToken:          raw.SlackBotToken,
		SlackSigningSecret:     raw.SlackSigningSecret,
		SlackAPIURL:            raw.SlackAPIURL,
		VideoReviewChannel:     raw.VideoReviewChannel,
		ApprovedContentChannel: raw.ApprovedContentChannel,
		GeminiAPIKey:           raw.GeminiAPIKey,
		GeminiModel:            raw.GeminiModel,
		CommentProvider:        strings.ToLower(raw.CommentProvider),
		OpenAIAPIKey:           raw.OpenAIAPIKey,
		OpenAIModel:            raw.OpenAIModel,
		OpenAIBaseURL:          raw.OpenAIBaseURL,
		PromptsFile:            raw.PromptsFile,
		ScoreThreshold:         raw.ScoreThreshold,
		ProcessingTimeout:      seconds(raw.ProcessingTimeout),
		PollInterval:           seconds(raw.PollInterval),
		DatabaseURL:            raw.DatabaseURL,
		DataDir:                raw.DataDir,
		DedupeURL:              raw.DedupeURL,
		TempDir:                cmp.Or(raw.TempDir, filepath.Join(os.TempDir(), "ugc_videos")),
		BlobMaxAge:             seconds(raw.BlobMaxAge),
		ApprovalMaxAge:         seconds(raw.ApprovalMaxAge),
		CleanupInterval:        seconds(raw.CleanupInterval),
		Port:                   raw.Port,
		WorkerCount:            raw.WorkerCount,
		APIAccessKey:           raw.APIAccessKey,
		Timezone:               raw.Timezone,
		Debug:                  raw.Debug,
		Version:                GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks constraints flags cannot express.
func (c *Cfg) Validate() error {
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 100 {
		return fmt.Errorf("score threshold must be between 0 and 100, got %d", c.ScoreThreshold)
	}

	switch c.CommentProvider {
	case CommentProviderGemini:
	case CommentProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("openai api key is required when comment provider is %s", CommentProviderOpenAI)
		}
	default:
		return fmt.Errorf("unsupported comment provider '%s'", c.CommentProvider)
	}

	if c.VideoReviewChannel == c.ApprovedContentChannel {
		return fmt.Errorf("video review and approved content channels must differ")
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}

	if c.PollInterval <= 0 || c.ProcessingTimeout <= 0 {
		return fmt.Errorf("poll interval and processing timeout must be positive")
	}

	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}

	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
