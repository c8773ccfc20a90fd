package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/intakebot/core/logger"
)

// Service maps chat events to engine operations and renders the results.
type Service struct {
	engine    *Engine
	composer  *Composer
	messenger Messenger
	groupID   int64
}

// NewService builds a Service that forwards submissions to groupID.
func NewService(engine *Engine, messenger Messenger, groupID int64) *Service {
	return &Service{
		engine:    engine,
		composer:  NewComposer(messenger),
		messenger: messenger,
		groupID:   groupID,
	}
}

// Engine returns the underlying engine.
func (s *Service) Engine() *Engine { return s.engine }

// Active reports whether the chat is inside a flow.
func (s *Service) Active(ctx context.Context, chatID int64) (bool, error) {
	conv, err := s.engine.Conversation(ctx, chatID)
	if err != nil {
		return false, err
	}
	return conv.Active(), nil
}

// OnStartCommand resets the conversation and greets the user.
func (s *Service) OnStartCommand(ctx context.Context, chatID int64) error {
	if err := s.engine.Reset(ctx, chatID); err != nil {
		s.fail(ctx, chatID)
		return err
	}
	return s.messenger.SendText(ctx, chatID, TextGreeting, StartKeyboard())
}

// OnStartButton shows the flow picker.
func (s *Service) OnStartButton(ctx context.Context, chatID int64) error {
	return s.messenger.SendText(ctx, chatID, TextPickFlow, PickerKeyboard())
}

// OnText handles a plain text message.
func (s *Service) OnText(ctx context.Context, chatID int64, text string) error {
	if strings.TrimSpace(text) == StartButtonLabel {
		return s.OnStartButton(ctx, chatID)
	}
	act, err := s.engine.HandleText(ctx, chatID, text)
	if err != nil {
		s.fail(ctx, chatID)
		return err
	}
	if act.Kind == ActionUnhandled {
		return s.messenger.SendText(ctx, chatID, TextNoActiveFlow, StartKeyboard())
	}
	return s.render(ctx, chatID, act)
}

// OnMedia handles a message carrying an attachment. Media sent outside of a
// flow is ignored.
func (s *Service) OnMedia(ctx context.Context, chatID int64, att Attachment) error {
	act, err := s.engine.HandleMedia(ctx, chatID, &att)
	if err != nil {
		s.fail(ctx, chatID)
		return err
	}
	if act.Kind == ActionUnhandled {
		return nil
	}
	return s.render(ctx, chatID, act)
}

// OnCallback handles a pressed inline button. The returned text, if any,
// should be shown as the callback answer.
func (s *Service) OnCallback(ctx context.Context, chatID int64, token string) (string, error) {
	var (
		act Action
		err error
	)
	switch token {
	case TokenStartBuilding:
		act, err = s.engine.StartFlow(ctx, chatID, FlowBuilding)
	case TokenStartParking:
		act, err = s.engine.StartFlow(ctx, chatID, FlowParking)
	case TokenBack:
		act, err = s.engine.HandleBack(ctx, chatID)
	case TokenSkip:
		act, err = s.engine.HandleMedia(ctx, chatID, nil)
	default:
		act, err = s.engine.HandleChoice(ctx, chatID, token)
	}
	if err != nil {
		s.fail(ctx, chatID)
		return "", err
	}

	switch act.Kind {
	case ActionUnhandled, ActionNoOp:
		return act.Notice, nil
	case ActionInvalidChoice:
		return act.Notice, s.send(ctx, chatID, act.Prompt, act.Step)
	default:
		return "", s.render(ctx, chatID, act)
	}
}

func (s *Service) render(ctx context.Context, chatID int64, act Action) error {
	switch act.Kind {
	case ActionReprompt:
		text := act.Prompt
		if act.Notice != "" {
			text = act.Notice
		}
		return s.send(ctx, chatID, text, act.Step)
	case ActionInvalidChoice:
		return s.send(ctx, chatID, act.Prompt, act.Step)
	case ActionSubmit:
		return s.submit(ctx, chatID, act)
	case ActionNoOp:
		if act.Notice != "" {
			return s.messenger.SendText(ctx, chatID, act.Notice, nil)
		}
	}
	return nil
}

func (s *Service) send(ctx context.Context, chatID int64, text string, step Step) error {
	var kb *Keyboard
	if def, ok := s.engine.Registry().Lookup(step); ok {
		kb = StepKeyboard(def)
	}
	return s.messenger.SendText(ctx, chatID, text, kb)
}

func (s *Service) submit(ctx context.Context, chatID int64, act Action) error {
	if act.Answers == nil {
		s.fail(ctx, chatID)
		return fmt.Errorf("%w: no answers", ErrIncompleteAnswers)
	}
	summary, err := Compose(*act.Answers)
	if err != nil {
		logger.LogEvent(ctx, logger.Submit, slog.LevelError, "submit.compose",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			slog.String("flow", string(act.Flow)),
			slog.String("err", err.Error()),
		)
		s.fail(ctx, chatID)
		return err
	}

	report := s.composer.Dispatch(ctx, summary, act.Answers.Media, []int64{chatID, s.groupID})
	dispatchErr := report.Err()
	outcome := "ok"
	if dispatchErr != nil {
		outcome = "partial"
		if !report.Delivered(s.groupID) && !report.Delivered(chatID) {
			outcome = "fail"
		}
	}
	logger.LogEvent(ctx, logger.Submit, slog.LevelInfo, "submit.done",
		slog.String("submission_id", report.SubmissionID),
		slog.Int64("chat_id", chatID),
		slog.String("flow", string(act.Flow)),
		slog.String("outcome", outcome),
		slog.Int("recipients", len(report.Deliveries)),
	)

	text := TextSubmitted
	if !report.Delivered(s.groupID) {
		text = TextSubmitFailed
	}
	if err := s.messenger.SendText(ctx, chatID, text, StartKeyboard()); err != nil {
		return errors.Join(dispatchErr, err)
	}
	return dispatchErr
}

// fail tells the user something went wrong. Progress already stored is kept.
func (s *Service) fail(ctx context.Context, chatID int64) {
	if err := s.messenger.SendText(ctx, chatID, TextGenericFail, nil); err != nil {
		logger.LogEvent(ctx, logger.Submit, slog.LevelWarn, "notify.fail",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
}
