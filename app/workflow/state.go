package workflow

// State is where a thread sits in the approval lifecycle. A thread is in
// StatePendingLinks exactly when an approval record exists for it.
type State string

const (
	StateNone         State = "none"
	StatePendingLinks State = "pending_links"
)

type Input string

const (
	InputSubmissionApproved Input = "submission_approved"
	InputSubmissionRejected Input = "submission_rejected"
	InputSubmissionFailed   Input = "submission_failed"
	InputPromptFailed       Input = "prompt_failed"
	InputReplyNoRecord      Input = "reply_no_record"
	InputReplyUnauthorized  Input = "reply_unauthorized"
	InputReplyNoLinks       Input = "reply_no_links"
	InputReplyPublished     Input = "reply_published"
	InputReplyPublishFailed Input = "reply_publish_failed"
)

// Action is the store mutation a transition requires.
type Action int

const (
	ActionNone Action = iota
	ActionUpsert
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionUpsert:
		return "upsert"
	case ActionDelete:
		return "delete"
	default:
		return "none"
	}
}

type transitionKey struct {
	from  State
	input Input
}

type transitionResult struct {
	to     State
	action Action
}

var transitions = map[transitionKey]transitionResult{
	{StateNone, InputSubmissionApproved}: {StatePendingLinks, ActionUpsert},
	{StateNone, InputSubmissionRejected}: {StateNone, ActionNone},
	{StateNone, InputSubmissionFailed}:   {StateNone, ActionNone},
	{StateNone, InputReplyNoRecord}:      {StateNone, ActionNone},

	// A replayed submission overwrites the record; a replay that is rejected
	// or fails leaves the earlier approval alone.
	{StatePendingLinks, InputSubmissionApproved}: {StatePendingLinks, ActionUpsert},
	{StatePendingLinks, InputSubmissionRejected}: {StatePendingLinks, ActionNone},
	{StatePendingLinks, InputSubmissionFailed}:   {StatePendingLinks, ActionNone},
	{StatePendingLinks, InputPromptFailed}:       {StateNone, ActionDelete},

	{StatePendingLinks, InputReplyUnauthorized}:  {StatePendingLinks, ActionNone},
	{StatePendingLinks, InputReplyNoLinks}:       {StatePendingLinks, ActionNone},
	{StatePendingLinks, InputReplyPublished}:     {StateNone, ActionDelete},
	{StatePendingLinks, InputReplyPublishFailed}: {StatePendingLinks, ActionNone},
}

// Next looks up the transition for input in state from. ok is false when the
// input is not valid in that state.
func Next(from State, input Input) (to State, action Action, ok bool) {
	result, ok := transitions[transitionKey{from, input}]
	if !ok {
		return from, ActionNone, false
	}
	return result.to, result.action, true
}
