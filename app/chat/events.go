package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slack-go/slack/slackevents"
)

const (
	SubTypeBotMessage      = "bot_message"
	SubTypeFileShare       = "file_share"
	SubTypeThreadBroadcast = "thread_broadcast"
)

type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimetype"`
	DownloadURL string `json:"url_private_download"`
}

func (f File) IsVideo() bool {
	return strings.HasPrefix(strings.ToLower(f.MimeType), "video/")
}

// Event is an inbound "message posted in a channel" notification.
type Event struct {
	ID       string `json:"-"`
	Type     string `json:"type"`
	Channel  string `json:"channel"`
	User     string `json:"user"`
	BotID    string `json:"bot_id"`
	SubType  string `json:"subtype"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
	Files    []File `json:"files"`
}

// FirstVideo returns the first video attachment, if any.
func (e Event) FirstVideo() (File, bool) {
	for _, f := range e.Files {
		if f.IsVideo() {
			return f, true
		}
	}
	return File{}, false
}

// IsThreadReply reports whether the event was posted inside an existing
// thread rather than starting one.
func (e Event) IsThreadReply() bool {
	return e.ThreadTS != "" && e.ThreadTS != e.TS
}

// ThreadID is the thread the event belongs to: its root when it is a reply,
// otherwise the event itself.
func (e Event) ThreadID() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.TS
}

// EventsRequest is a decoded Events API payload. Exactly one of Challenge or
// Event is set; Event is nil for callbacks that are not channel messages.
type EventsRequest struct {
	Challenge string
	EventID   string
	Event     *Event
}

func ParseEventsRequest(body []byte) (*EventsRequest, error) {
	outer, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return nil, fmt.Errorf("failed to parse events payload: %w", err)
	}

	switch outer.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			return nil, fmt.Errorf("failed to decode url verification: %w", err)
		}
		return &EventsRequest{Challenge: challenge.Challenge}, nil

	case slackevents.CallbackEvent:
		callback, ok := outer.Data.(*slackevents.EventsAPICallbackEvent)
		if !ok || callback.InnerEvent == nil {
			return nil, fmt.Errorf("unexpected callback payload %T", outer.Data)
		}

		req := &EventsRequest{EventID: callback.EventID}
		if outer.InnerEvent.Type != string(slackevents.Message) {
			return req, nil
		}

		var event Event
		if err := json.Unmarshal(*callback.InnerEvent, &event); err != nil {
			return nil, fmt.Errorf("failed to decode message event: %w", err)
		}
		event.ID = callback.EventID
		req.Event = &event

		return req, nil

	default:
		return nil, fmt.Errorf("unsupported events payload type '%s'", outer.Type)
	}
}
