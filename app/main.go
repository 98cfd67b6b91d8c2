package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/lysyi3m/ugc-review/app/api"
	"github.com/lysyi3m/ugc-review/app/blob"
	"github.com/lysyi3m/ugc-review/app/cfg"
	"github.com/lysyi3m/ugc-review/app/chat"
	"github.com/lysyi3m/ugc-review/app/database"
	"github.com/lysyi3m/ugc-review/app/oracle"
	"github.com/lysyi3m/ugc-review/app/tasks"
	"github.com/lysyi3m/ugc-review/app/workflow"
)

// Longer than Slack's redelivery window.
const eventDedupeTTL = time.Hour

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  debug,
	})))
}

func run(appCfg *cfg.Cfg) error {
	ctx := context.Background()

	slog.Info("Starting UGC Review server", "version", appCfg.Version)

	slackClient := chat.NewClient(chat.ClientOptions{
		Token:  appCfg.SlackBotToken,
		APIURL: appCfg.SlackAPIURL,
	})

	identity, err := slackClient.Identity(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve bot identity: %w", err)
	}
	slog.Info("Slack bot identity resolved", "user_id", identity.UserID, "bot_id", identity.BotID)

	approvals, err := database.Open(ctx, appCfg.DatabaseURL, appCfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open approval store: %w", err)
	}
	defer approvals.Close()

	deduper, closeDeduper, err := newDeduper(ctx, appCfg.DedupeURL)
	if err != nil {
		return err
	}
	defer closeDeduper()

	blobs, err := blob.NewStore(appCfg.TempDir, slackClient)
	if err != nil {
		return err
	}
	slog.Info("Video storage ready", "dir", blobs.Dir())

	guidelines, err := oracle.LoadGuidelines(appCfg.PromptsFile)
	if err != nil {
		return fmt.Errorf("failed to load comment guidelines: %w", err)
	}

	gemini, err := oracle.NewGeminiClient(ctx, oracle.GeminiOptions{
		APIKey:            appCfg.GeminiAPIKey,
		Model:             appCfg.GeminiModel,
		PollInterval:      appCfg.PollInterval,
		ProcessingTimeout: appCfg.ProcessingTimeout,
		Guidelines:        guidelines,
	})
	if err != nil {
		return err
	}

	var generator oracle.Generator = gemini
	if appCfg.CommentProvider == cfg.CommentProviderOpenAI {
		generator = oracle.NewOpenAIGenerator(oracle.OpenAIOptions{
			APIKey:     appCfg.OpenAIAPIKey,
			Model:      appCfg.OpenAIModel,
			BaseURL:    appCfg.OpenAIBaseURL,
			Guidelines: guidelines,
		})
	}

	flow := workflow.New(workflow.Options{
		Approvals:         approvals,
		Blobs:             blobs,
		Scorer:            gemini,
		Generator:         generator,
		Poster:            slackClient,
		Identity:          identity,
		SubmissionChannel: appCfg.VideoReviewChannel,
		ApprovedChannel:   appCfg.ApprovedContentChannel,
		Threshold:         appCfg.ScoreThreshold,
	})

	slog.Info("Workflow configured",
		"review_channel", appCfg.VideoReviewChannel,
		"approved_channel", appCfg.ApprovedContentChannel,
		"threshold", appCfg.ScoreThreshold,
		"comment_provider", appCfg.CommentProvider)

	scheduler := tasks.NewScheduler(tasks.Options{
		Sweeper:        blobs,
		Approvals:      approvals,
		Interval:       appCfg.CleanupInterval,
		WorkerCount:    appCfg.WorkerCount,
		BlobMaxAge:     appCfg.BlobMaxAge,
		ApprovalMaxAge: appCfg.ApprovalMaxAge,
		TaskTimeout:    appCfg.ProcessingTimeout + 5*time.Minute,
	})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(api.HandlerOptions{
		Approvals:     approvals,
		Scheduler:     scheduler,
		Events:        flow,
		Deduper:       deduper,
		Sweeper:       blobs,
		SigningSecret: appCfg.SlackSigningSecret,
		BlobMaxAge:    appCfg.BlobMaxAge,
	})
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return runErr
}

// newDeduper shares delivered event ids through valkey when url is set and
// keeps them in memory otherwise.
func newDeduper(ctx context.Context, url string) (chat.Deduper, func(), error) {
	if url == "" {
		return chat.NewMemoryDeduper(eventDedupeTTL), func() {}, nil
	}

	client, err := database.NewValkeyClient(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect event dedupe store: %w", err)
	}

	slog.Info("Event deduplication shared through valkey")
	return chat.NewValkeyDeduper(client, eventDedupeTTL), client.Close, nil
}
