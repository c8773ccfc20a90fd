package tgbot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/intakebot/core/logger"
	tg "github.com/m3rciful/intakebot/core/telegram"
	"github.com/m3rciful/intakebot/core/telegram/callbacks"
	"github.com/m3rciful/intakebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/intakebot/core/telegram/helpers"
	"github.com/m3rciful/intakebot/core/telegram/middleware"
	"github.com/m3rciful/intakebot/core/telegram/router"
	"github.com/m3rciful/intakebot/internal/intake"
)

// Handlers adapts Telegram updates to the intake service.
type Handlers struct {
	svc *intake.Service
}

// NewHandlers binds handlers to svc.
func NewHandlers(svc *intake.Service) *Handlers {
	return &Handlers{svc: svc}
}

// Register adds the /start command and every button token to reg.
func (h *Handlers) Register(reg *tg.Registry) int {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.OnStart,
		Description: "Почати спочатку",
	})
	tokens := []string{
		intake.TokenStartBuilding,
		intake.TokenStartParking,
		intake.TokenBack,
		intake.TokenSkip,
	}
	tokens = append(tokens, h.svc.Engine().Registry().OptionTokens()...)
	return reg.RegisterCallbacks(tokens, h.OnCallback)
}

// Routes builds the command, callback, text and media routes. Media only
// reaches the service while a flow is active.
func (h *Handlers) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	return append(routes, router.TextRoutes(reg, router.TextOptions{
		OnText:          h.OnText,
		OnMedia:         h.OnMedia,
		MediaMiddleware: []tele.MiddlewareFunc{middleware.RequireActiveFlow(h.svc)},
	})...)
}

// OnStart handles /start.
func (h *Handlers) OnStart(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	return h.svc.OnStartCommand(tghelpers.BuildContext(c), chat.ID)
}

// OnText handles plain text messages.
func (h *Handlers) OnText(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	return h.svc.OnText(tghelpers.BuildContext(c), chat.ID, c.Text())
}

// OnMedia handles photo, video, document and other attachment messages.
func (h *Handlers) OnMedia(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	return h.svc.OnMedia(tghelpers.BuildContext(c), chat.ID, attachmentFrom(c.Message()))
}

// OnCallback handles inline button presses and answers the callback with
// the service's toast, if any.
func (h *Handlers) OnCallback(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return callbacks.Answer(c, "")
	}
	ctx := tghelpers.BuildContext(c)
	toast, err := h.svc.OnCallback(ctx, chat.ID, callbacks.CallbackKey(c))
	if ansErr := callbacks.Answer(c, toast); ansErr != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "callback.answer",
			slog.String("status", "fail"),
			slog.String("err", ansErr.Error()),
		)
	}
	return err
}

// onLimited tells a user who sends too fast to slow down.
func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return callbacks.Answer(c, intake.TextSlowDown)
	}
	return tghelpers.SendText(c, intake.TextSlowDown)
}
