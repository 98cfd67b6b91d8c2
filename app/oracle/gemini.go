package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiRequestTimeout = 5 * time.Minute
	remoteCleanupTimeout = 30 * time.Second
)

type fileService interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

type modelService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var (
	_ Scorer    = (*GeminiClient)(nil)
	_ Generator = (*GeminiClient)(nil)
)

type GeminiClient struct {
	files             fileService
	models            modelService
	model             string
	guidelines        *Guidelines
	pollInterval      time.Duration
	processingTimeout time.Duration
}

type GeminiOptions struct {
	APIKey            string
	Model             string
	PollInterval      time.Duration
	ProcessingTimeout time.Duration
	Guidelines        *Guidelines
}

func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: geminiRequestTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	slog.Info("Gemini client initialized", "model", opts.Model, "processing_timeout", opts.ProcessingTimeout)

	return newGeminiClient(client.Files, client.Models, opts), nil
}

func newGeminiClient(files fileService, models modelService, opts GeminiOptions) *GeminiClient {
	return &GeminiClient{
		files:             files,
		models:            models,
		model:             opts.Model,
		guidelines:        opts.Guidelines,
		pollInterval:      opts.PollInterval,
		processingTimeout: opts.ProcessingTimeout,
	}
}

func (c *GeminiClient) Score(ctx context.Context, videoPath, mimeType, caption string) (*VideoReview, error) {
	caption = strings.TrimSpace(caption)
	hasCaption := caption != ""

	prompt, err := ReviewPrompt(caption)
	if err != nil {
		return nil, err
	}

	file, err := c.files.UploadFromPath(ctx, videoPath, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}
	defer c.deleteRemote(file.Name)

	file, err = c.waitForActive(ctx, file)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, file.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   reviewSchema(hasCaption),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate review: %w", err)
	}

	review, err := ParseReview(resp.Text(), hasCaption)
	if err != nil {
		return nil, err
	}

	slog.Debug("Video scored", "file", file.Name, "score", review.OverallScore, "tier", review.ViralityTier)

	return review, nil
}

// waitForActive polls the uploaded file until the service finishes
// processing it, bounded by the processing timeout.
func (c *GeminiClient) waitForActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.processingTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		switch file.State {
		case genai.FileStateActive:
			return file, nil
		case genai.FileStateFailed:
			return nil, fmt.Errorf("%w: %s", ErrProcessingFailed, file.Name)
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w after %s: %s", ErrProcessingTimeout, c.processingTimeout, file.Name)
		case <-ticker.C:
		}

		current, err := c.files.Get(pollCtx, file.Name, nil)
		if err != nil {
			if pollCtx.Err() != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("%w after %s: %s", ErrProcessingTimeout, c.processingTimeout, file.Name)
			}
			return nil, fmt.Errorf("failed to get file state: %w", err)
		}
		file = current
	}
}

func (c *GeminiClient) deleteRemote(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteCleanupTimeout)
	defer cancel()

	if _, err := c.files.Delete(ctx, name, nil); err != nil {
		slog.Warn("Failed to delete uploaded video", "file", name, "error", err)
	}
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	prompt, err := CommentPrompt(req, c.guidelines)
	if err != nil {
		return "", err
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate comments: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
