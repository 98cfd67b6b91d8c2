package workflow

import (
	"testing"

	"github.com/lysyi3m/ugc-review/app/chat"
)

func TestClassify(t *testing.T) {
	self := chat.Identity{UserID: "U-BOT", BotID: "B-BOT"}
	video := []chat.File{{ID: "F1", MimeType: "video/quicktime"}}

	tests := []struct {
		name     string
		event    chat.Event
		expected Route
	}{
		{
			name:     "video upload",
			event:    chat.Event{Channel: testSubmissionChannel, User: "U1", SubType: chat.SubTypeFileShare, TS: "1", Files: video},
			expected: RouteSubmission,
		},
		{
			name:     "upload with thread ts equal to own ts",
			event:    chat.Event{Channel: testSubmissionChannel, User: "U1", TS: "1", ThreadTS: "1", Files: video},
			expected: RouteSubmission,
		},
		{
			name:     "thread reply",
			event:    chat.Event{Channel: testSubmissionChannel, User: "U1", TS: "2", ThreadTS: "1", Text: "links"},
			expected: RouteReply,
		},
		{
			name:     "broadcast thread reply",
			event:    chat.Event{Channel: testSubmissionChannel, User: "U1", SubType: chat.SubTypeThreadBroadcast, TS: "2", ThreadTS: "1"},
			expected: RouteReply,
		},
		{
			name:     "plain chatter",
			event:    chat.Event{Channel: testSubmissionChannel, User: "U1", TS: "1", Text: "hello"},
			expected: RouteIgnore,
		},
		{
			name:     "image only",
			event:    chat.Event{Channel: testSubmissionChannel, User: "U1", TS: "1", Files: []chat.File{{ID: "F2", MimeType: "image/png"}}},
			expected: RouteIgnore,
		},
		{
			name:     "other channel",
			event:    chat.Event{Channel: "C-OTHER", User: "U1", TS: "1", Files: video},
			expected: RouteIgnore,
		},
		{
			name:     "bot id set",
			event:    chat.Event{Channel: testSubmissionChannel, BotID: "B-OTHER", TS: "2", ThreadTS: "1"},
			expected: RouteIgnore,
		},
		{
			name:     "bot message subtype",
			event:    chat.Event{Channel: testSubmissionChannel, SubType: chat.SubTypeBotMessage, TS: "1", Files: video},
			expected: RouteIgnore,
		},
		{
			name:     "own user",
			event:    chat.Event{Channel: testSubmissionChannel, User: "U-BOT", TS: "2", ThreadTS: "1"},
			expected: RouteIgnore,
		},
		{
			name:     "edited message",
			event:    chat.Event{Channel: testSubmissionChannel, User: "U1", SubType: "message_changed", TS: "2", ThreadTS: "1"},
			expected: RouteIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Classify(tt.event, self, testSubmissionChannel)
			if first.Route != tt.expected {
				t.Errorf("Expected route %s, got %s (%s)", tt.expected, first.Route, first.Reason)
			}
			if first.Route == RouteIgnore && first.Reason == "" {
				t.Error("Expected a reason for ignored event")
			}

			second := Classify(tt.event, self, testSubmissionChannel)
			if second != first {
				t.Errorf("Expected identical decision on replay, got %+v then %+v", first, second)
			}
		})
	}
}
