package intake

import (
	"encoding/json"
	"fmt"

	"github.com/m3rciful/intakebot/core/telegram/state"
)

// Conversation is the decoded per-chat flow state.
type Conversation struct {
	ChatID  int64
	Step    Step
	Answers Answers
	History History
}

// Active reports whether the conversation is inside a flow.
func (c Conversation) Active() bool {
	return c.Step != StepNone
}

func (c *Conversation) reset() {
	*c = Conversation{ChatID: c.ChatID}
}

func decodeConversation(chatID int64, sess state.Session) (Conversation, error) {
	conv := Conversation{ChatID: chatID}
	if sess.Active() {
		conv.Step = Step(sess.State)
	}
	for _, s := range sess.History {
		conv.History.Push(Step(s))
	}
	if len(sess.Data) > 0 {
		if err := json.Unmarshal(sess.Data, &conv.Answers); err != nil {
			return Conversation{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	return conv, nil
}

func encodeConversation(conv Conversation, sess *state.Session) error {
	out := state.Idle()
	if conv.Active() {
		out.State = state.State(conv.Step)
	}
	for _, s := range conv.History.steps {
		out.History = append(out.History, state.State(s))
	}
	if !conv.Answers.IsZero() {
		raw, err := json.Marshal(conv.Answers)
		if err != nil {
			return fmt.Errorf("encode answers: %w", err)
		}
		out.Data = raw
	}
	*sess = out
	return nil
}
