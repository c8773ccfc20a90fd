package intake

// ActionKind tells the caller how to react to an engine result.
type ActionKind int

const (
	// ActionUnhandled means there is no active flow for the event.
	ActionUnhandled ActionKind = iota
	// ActionReprompt asks the caller to show Step's prompt or Notice.
	ActionReprompt
	// ActionInvalidChoice means the pressed button is not valid here.
	ActionInvalidChoice
	// ActionNoOp changes nothing; Notice may be shown as a hint.
	ActionNoOp
	// ActionSubmit carries the completed answers of Flow.
	ActionSubmit
)

func (k ActionKind) String() string {
	switch k {
	case ActionUnhandled:
		return "unhandled"
	case ActionReprompt:
		return "reprompt"
	case ActionInvalidChoice:
		return "invalid_choice"
	case ActionNoOp:
		return "noop"
	case ActionSubmit:
		return "submit"
	default:
		return "unknown"
	}
}

// Action is the outcome of one engine operation.
type Action struct {
	Kind ActionKind
	Step Step
	Flow Flow
	// Prompt is the prompt of Step.
	Prompt string
	// Notice explains a rejected input; empty after an accepted one.
	Notice string
	// Err is the validation or navigation cause, if any.
	Err error
	// Answers is a snapshot of the submitted answers for ActionSubmit.
	Answers *Answers
}

// Accepted reports whether the input moved the conversation forward or back.
func (a Action) Accepted() bool {
	return a.Err == nil && (a.Kind == ActionReprompt || a.Kind == ActionSubmit)
}
