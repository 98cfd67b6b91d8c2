package oracle

import (
	"context"
	"errors"

	"github.com/lysyi3m/ugc-review/app/links"
)

var (
	ErrProcessingTimeout = errors.New("video processing timed out")
	ErrProcessingFailed  = errors.New("video processing failed")
)

// Scorer reviews a local video file. An empty caption means none was given.
type Scorer interface {
	Score(ctx context.Context, videoPath, mimeType, caption string) (*VideoReview, error)
}

type GenerateRequest struct {
	Platform links.Platform
	PostURL  string
	Context  string
	Caption  string
}

// Generator produces engagement comments for one published post.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
