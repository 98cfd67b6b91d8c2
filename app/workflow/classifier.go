package workflow

import (
	"github.com/lysyi3m/ugc-review/app/chat"
)

type Route int

const (
	RouteIgnore Route = iota
	RouteSubmission
	RouteReply
)

func (r Route) String() string {
	switch r {
	case RouteSubmission:
		return "submission"
	case RouteReply:
		return "reply"
	default:
		return "ignore"
	}
}

// Decision is the classifier's verdict. Reason explains ignored events.
type Decision struct {
	Route  Route
	Reason string
}

// Message subtypes that still carry user content. Edits, deletions, joins and
// the like are dropped.
var userSubTypes = map[string]bool{
	"":                          true,
	chat.SubTypeFileShare:       true,
	chat.SubTypeThreadBroadcast: true,
}

// Classify decides which path an event takes. It has no side effects, so a
// replayed event always routes the same way.
func Classify(event chat.Event, self chat.Identity, submissionChannel string) Decision {
	switch {
	case event.BotID != "" || event.SubType == chat.SubTypeBotMessage:
		return Decision{Route: RouteIgnore, Reason: "bot message"}
	case self.UserID != "" && event.User == self.UserID:
		return Decision{Route: RouteIgnore, Reason: "own message"}
	case event.Channel != submissionChannel:
		return Decision{Route: RouteIgnore, Reason: "other channel"}
	case !userSubTypes[event.SubType]:
		return Decision{Route: RouteIgnore, Reason: "unsupported subtype " + event.SubType}
	case event.IsThreadReply():
		return Decision{Route: RouteReply}
	}

	if _, ok := event.FirstVideo(); !ok {
		return Decision{Route: RouteIgnore, Reason: "no video attachment"}
	}

	return Decision{Route: RouteSubmission}
}
