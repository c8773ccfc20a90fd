package intake

// History is the stack of steps a conversation came from.
type History struct {
	steps []Step
}

// Push records step as the most recent origin.
func (h *History) Push(step Step) {
	h.steps = append(h.steps, step)
}

// Pop removes and returns the most recent step.
func (h *History) Pop() (Step, bool) {
	if len(h.steps) == 0 {
		return StepNone, false
	}
	last := h.steps[len(h.steps)-1]
	h.steps = h.steps[:len(h.steps)-1]
	return last, true
}

// Len returns the stack depth.
func (h History) Len() int { return len(h.steps) }

// Steps returns a copy of the stack, oldest first.
func (h History) Steps() []Step {
	return append([]Step(nil), h.steps...)
}
