package middleware

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/intakebot/core/logger"
	tghelpers "github.com/m3rciful/intakebot/core/telegram/helpers"
)

// FlowChecker reports whether a chat is inside a conversation flow.
type FlowChecker interface {
	Active(ctx context.Context, chatID int64) (bool, error)
}

// RequireActiveFlow passes updates on only while the chat has an active flow.
// Lookup errors are passed on so the handler can report them.
func RequireActiveFlow(checker FlowChecker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if checker == nil || chat == nil {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			active, err := checker.Active(ctx, chat.ID)
			if err != nil || active {
				return next(c)
			}
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "fsm.skip",
				slog.String("status", "skip"),
				slog.Int64("chat_id", chat.ID),
				slog.String("reason", "no_active_flow"),
			)
			return nil
		}
	}
}
