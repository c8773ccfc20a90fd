package intake

// Flow names one of the intake journeys.
type Flow string

const (
	FlowBuilding Flow = "building"
	FlowParking  Flow = "parking"
)

// Step identifies a point in a flow that awaits one kind of input.
// The zero value means no active flow.
type Step string

const (
	StepNone Step = ""

	StepBuildingDetails     Step = "building.details"
	StepBuildingProblemType Step = "building.problem_type"
	StepBuildingDescription Step = "building.problem_description"
	StepBuildingMedia       Step = "building.media"

	StepParkingUserInfo Step = "parking.user_info"
	StepParkingAction   Step = "parking.action"
	StepParkingCars     Step = "parking.cars"
	StepParkingMedia    Step = "parking.media"

	// StepSubmit is the terminal transition of every flow.
	StepSubmit Step = "submit"
)

// InputKind is the shape of input a step accepts.
type InputKind int

const (
	// InputLines expects a text message with a fixed number of non-empty lines.
	InputLines InputKind = iota
	// InputChoice expects one of the step's option tokens.
	InputChoice
	// InputMedia expects an attachment or an explicit skip.
	InputMedia
)

func (k InputKind) String() string {
	switch k {
	case InputLines:
		return "lines"
	case InputChoice:
		return "choice"
	case InputMedia:
		return "media"
	default:
		return "unknown"
	}
}

// Option is a selectable answer of a choice step.
type Option struct {
	Token string
	Label string
}

// StepDef is the static definition of a step.
type StepDef struct {
	ID     Step
	Flow   Flow
	Prompt string
	Input  InputKind

	// Lines is the number of required non-empty lines for InputLines.
	Lines int
	// WholeText keeps the full trimmed message as the single value.
	WholeText bool
	// Malformed is shown when a text answer fails validation.
	Malformed string

	Options      []Option
	Next         Step
	NextByChoice map[string]Step

	// Assign stores accepted values into the flow answers.
	Assign func(a *Answers, values []string)
}

// HasOption reports whether token is declared by the step.
func (d StepDef) HasOption(token string) bool {
	for _, opt := range d.Options {
		if opt.Token == token {
			return true
		}
	}
	return false
}

// Successor returns the step that follows an accepted answer.
func (d StepDef) Successor(token string) Step {
	if next, ok := d.NextByChoice[token]; ok {
		return next
	}
	return d.Next
}

func (d StepDef) successors() []Step {
	out := []Step{d.Next}
	for _, next := range d.NextByChoice {
		out = append(out, next)
	}
	return out
}
