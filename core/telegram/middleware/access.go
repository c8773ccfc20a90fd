package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/intakebot/core/logger"
	tghelpers "github.com/m3rciful/intakebot/core/telegram/helpers"
)

// ChatTypeOptions defines which chats may reach downstream handlers.
type ChatTypeOptions struct {
	Allowed  []tele.ChatType
	OnReject tele.HandlerFunc
}

// ChatTypes drops updates from chats whose type is not allowed. The bot sits
// in the staff group as a recipient and must not run flows there.
func ChatTypes(opts ChatTypeOptions) tele.MiddlewareFunc {
	allowed := make(map[tele.ChatType]struct{}, len(opts.Allowed))
	for _, t := range opts.Allowed {
		allowed[t] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || len(allowed) == 0 {
				return next(c)
			}
			if _, ok := allowed[chat.Type]; ok {
				return next(c)
			}
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelDebug, "access.skip",
				slog.String("status", "skip"),
				slog.Int64("chat_id", chat.ID),
				slog.String("chat_type", string(chat.Type)),
				slog.String("reason", "chat_type"),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
