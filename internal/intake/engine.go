package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/intakebot/core/logger"
	"github.com/m3rciful/intakebot/core/telegram/state"
)

// Engine drives conversations through the registry. Every operation is a
// single atomic Store.Update, so a failed or rejected event leaves the stored
// conversation untouched.
type Engine struct {
	store    state.Store
	registry *Registry
}

// NewEngine builds an engine. A nil registry selects DefaultRegistry.
func NewEngine(store state.Store, registry *Registry) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{store: store, registry: registry}
}

// Registry returns the step table used by the engine.
func (e *Engine) Registry() *Registry {
	return e.registry
}

type transition func(conv *Conversation) (act Action, changed bool)

func (e *Engine) run(ctx context.Context, chatID int64, op string, fn transition) (Action, error) {
	start := time.Now()
	var (
		act      Action
		prevStep Step
		histLen  int
	)
	err := e.store.Update(ctx, chatID, func(sess *state.Session) error {
		conv, err := decodeConversation(chatID, *sess)
		if err != nil {
			return err
		}
		prevStep = conv.Step
		var changed bool
		act, changed = fn(&conv)
		histLen = conv.History.Len()
		if !changed {
			return state.ErrUnchanged
		}
		return encodeConversation(conv, sess)
	})
	if err != nil {
		logger.LogEvent(ctx, logger.Engine, slog.LevelError, "intake.transition",
			slog.String("status", "fail"),
			slog.String("action", op),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return Action{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	attrs := []slog.Attr{
		slog.String("status", transitionStatus(act)),
		slog.String("action", op),
		slog.Int64("chat_id", chatID),
		slog.String("outcome", act.Kind.String()),
		slog.String("prev_step", string(prevStep)),
		slog.String("step", string(act.Step)),
		slog.Int("history_len", histLen),
		slog.Duration("duration", time.Since(start)),
	}
	if act.Flow != "" {
		attrs = append(attrs, slog.String("flow", string(act.Flow)))
	}
	if act.Err != nil {
		attrs = append(attrs, slog.String("reason", act.Err.Error()))
	}
	logger.LogEvent(ctx, logger.Engine, transitionLevel(act), "intake.transition", attrs...)
	return act, nil
}

func transitionStatus(act Action) string {
	switch {
	case act.Kind == ActionUnhandled || act.Kind == ActionNoOp:
		return "skip"
	case IsValidation(act.Err):
		return "rejected"
	case act.Err != nil:
		return "fail"
	default:
		return "ok"
	}
}

// transitionLevel raises rejected input to INFO and anything else that
// carries an error to WARN.
func transitionLevel(act Action) slog.Level {
	switch {
	case act.Err == nil || act.Kind == ActionUnhandled || act.Kind == ActionNoOp:
		return slog.LevelDebug
	case IsValidation(act.Err):
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// StartFlow enters the first step of flow, discarding any previous progress.
func (e *Engine) StartFlow(ctx context.Context, chatID int64, flow Flow) (Action, error) {
	entry, ok := e.registry.Entry(flow)
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownFlow, flow)
	}
	return e.run(ctx, chatID, "start", func(conv *Conversation) (Action, bool) {
		conv.reset()
		conv.Step = entry.ID
		conv.Answers = newAnswers(flow)
		return e.prompt(entry), true
	})
}

// HandleText applies a text message to the current step.
func (e *Engine) HandleText(ctx context.Context, chatID int64, text string) (Action, error) {
	return e.run(ctx, chatID, "text", func(conv *Conversation) (Action, bool) {
		def, act, ok, dirty := e.current(conv)
		if !ok {
			return act, dirty
		}
		switch def.Input {
		case InputChoice:
			return e.reject(def, TextUseButtons, ErrUnexpectedInput), false
		case InputMedia:
			return e.reject(def, TextAttachOrSkip, ErrUnexpectedInput), false
		}
		values, ok := parseLines(text, def.Lines, def.WholeText)
		if !ok {
			return e.reject(def, def.Malformed, ErrMalformedAnswer), false
		}
		def.Assign(&conv.Answers, values)
		return e.advance(conv, def, def.Next), true
	})
}

// HandleChoice applies a pressed option button to the current step.
func (e *Engine) HandleChoice(ctx context.Context, chatID int64, token string) (Action, error) {
	return e.run(ctx, chatID, "choice", func(conv *Conversation) (Action, bool) {
		def, act, ok, dirty := e.current(conv)
		if !ok {
			return act, dirty
		}
		if def.Input != InputChoice {
			return e.invalid(def, ErrUnexpectedInput), false
		}
		if !def.HasOption(token) {
			return e.invalid(def, ErrUnknownChoice), false
		}
		def.Assign(&conv.Answers, []string{token})
		return e.advance(conv, def, def.Successor(token)), true
	})
}

// HandleMedia applies an attachment to the current step. A nil attachment
// means the user pressed skip.
func (e *Engine) HandleMedia(ctx context.Context, chatID int64, att *Attachment) (Action, error) {
	op := "media"
	if att == nil {
		op = "skip"
	}
	return e.run(ctx, chatID, op, func(conv *Conversation) (Action, bool) {
		def, act, ok, dirty := e.current(conv)
		if !ok {
			return act, dirty
		}
		if def.Input != InputMedia {
			if att == nil {
				return e.invalid(def, ErrUnexpectedInput), false
			}
			notice := TextExpectText
			if def.Input == InputChoice {
				notice = TextUseButtons
			}
			return e.reject(def, notice, ErrUnexpectedInput), false
		}
		if att == nil {
			conv.Answers.Media = nil
			return e.advance(conv, def, def.Next), true
		}
		media, err := Classify(*att)
		if err != nil {
			return e.reject(def, rejectionText(err), err), false
		}
		conv.Answers.Media = &media
		return e.advance(conv, def, def.Next), true
	})
}

// HandleBack returns to the previous step. Answers given so far are kept and
// overwritten when the step is answered again.
func (e *Engine) HandleBack(ctx context.Context, chatID int64) (Action, error) {
	return e.run(ctx, chatID, "back", func(conv *Conversation) (Action, bool) {
		def, act, ok, dirty := e.current(conv)
		if !ok {
			return act, dirty
		}
		prev, ok := conv.History.Pop()
		if !ok {
			return Action{
				Kind:   ActionNoOp,
				Step:   def.ID,
				Flow:   def.Flow,
				Notice: TextFirstStep,
				Err:    ErrHistoryEmpty,
			}, false
		}
		prevDef, ok := e.registry.Lookup(prev)
		if !ok {
			conv.reset()
			return Action{Kind: ActionUnhandled, Notice: TextNoActiveFlow, Err: ErrNoActiveFlow}, true
		}
		conv.Step = prev
		return e.prompt(prevDef), true
	})
}

// Reset discards the conversation. Resetting an idle chat is a no-op.
func (e *Engine) Reset(ctx context.Context, chatID int64) error {
	if err := e.store.Clear(ctx, chatID); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	logger.LogEvent(ctx, logger.Engine, slog.LevelDebug, "intake.reset",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
	)
	return nil
}

// Conversation loads the current conversation of a chat.
func (e *Engine) Conversation(ctx context.Context, chatID int64) (Conversation, error) {
	sess, err := e.store.Get(ctx, chatID)
	if err != nil {
		return Conversation{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	conv, err := decodeConversation(chatID, sess)
	if err != nil {
		return Conversation{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return conv, nil
}

// current resolves the active step. A stored step that no longer exists in
// the registry ends the conversation; dirty reports that reset.
func (e *Engine) current(conv *Conversation) (def StepDef, act Action, ok, dirty bool) {
	unhandled := Action{Kind: ActionUnhandled, Notice: TextNoActiveFlow, Err: ErrNoActiveFlow}
	if !conv.Active() {
		return StepDef{}, unhandled, false, false
	}
	def, ok = e.registry.Lookup(conv.Step)
	if !ok {
		conv.reset()
		return StepDef{}, unhandled, false, true
	}
	return def, Action{}, true, false
}

func (e *Engine) advance(conv *Conversation, def StepDef, next Step) Action {
	conv.History.Push(def.ID)
	if next == StepSubmit {
		snapshot := conv.Answers.Clone()
		snapshot.Flow = def.Flow
		conv.reset()
		return Action{Kind: ActionSubmit, Flow: def.Flow, Answers: &snapshot}
	}
	nextDef, ok := e.registry.Lookup(next)
	if !ok {
		conv.reset()
		return Action{Kind: ActionUnhandled, Notice: TextNoActiveFlow, Err: ErrNoActiveFlow}
	}
	conv.Step = next
	return e.prompt(nextDef)
}

func (e *Engine) prompt(def StepDef) Action {
	return Action{Kind: ActionReprompt, Step: def.ID, Flow: def.Flow, Prompt: def.Prompt}
}

func (e *Engine) reject(def StepDef, notice string, err error) Action {
	act := e.prompt(def)
	act.Notice = notice
	act.Err = err
	return act
}

func (e *Engine) invalid(def StepDef, err error) Action {
	act := e.prompt(def)
	act.Kind = ActionInvalidChoice
	act.Notice = TextUnknownOption
	act.Err = err
	return act
}

// parseLines splits text on line breaks and returns the first n non-empty
// trimmed lines. Extra lines are ignored. With whole set, the entire trimmed
// text is returned as one value.
func parseLines(text string, n int, whole bool) ([]string, bool) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if whole {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, false
		}
		return []string{trimmed}, true
	}
	values := make([]string, 0, n)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		values = append(values, line)
		if len(values) == n {
			return values, true
		}
	}
	return nil, false
}

// IsNoActiveFlow reports whether act was produced outside of a flow.
func IsNoActiveFlow(act Action) bool {
	return act.Kind == ActionUnhandled && errors.Is(act.Err, ErrNoActiveFlow)
}
