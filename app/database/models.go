package database

import (
	"time"
)

// Approval is a scored, approved submission waiting for the poster's links.
// It exists only between approval and successful publication.
type Approval struct {
	ThreadID     string    `json:"thread_id" dynamodbav:"thread_id"`
	PosterID     string    `json:"poster_id" dynamodbav:"poster_id"`
	ChannelID    string    `json:"channel_id" dynamodbav:"channel_id"`
	Score        *int      `json:"score,omitempty" dynamodbav:"score,omitempty"`
	ReviewText   string    `json:"review_text" dynamodbav:"review_text"`
	ViralityTier string    `json:"virality_tier,omitempty" dynamodbav:"virality_tier,omitempty"` // empty when unknown
	Caption      string    `json:"caption,omitempty" dynamodbav:"caption,omitempty"`             // empty when none was given
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at,unixtime"`
}
