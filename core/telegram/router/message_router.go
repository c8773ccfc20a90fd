package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/intakebot/core/telegram"
	"github.com/m3rciful/intakebot/core/telegram/middleware"
)

// MediaEndpoints lists the message kinds routed to the media handler.
var MediaEndpoints = []string{
	tele.OnPhoto,
	tele.OnVideo,
	tele.OnDocument,
	tele.OnAudio,
	tele.OnVoice,
	tele.OnSticker,
	tele.OnAnimation,
	tele.OnVideoNote,
}

// TextOptions controls how plain text and media updates are handled.
type TextOptions struct {
	// OnText handles text that is not a registered command.
	OnText tele.HandlerFunc
	// OnMedia handles every endpoint in MediaEndpoints.
	OnMedia tele.HandlerFunc
	// MediaMiddleware wraps OnMedia, e.g. to gate it on an active flow.
	MediaMiddleware []tele.MiddlewareFunc
}

var timeNow = time.Now

// TextRoutes builds handlers for text and media routing. Text matching a
// command or alias goes to the command handler first.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := timeNow()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return handleWithSummary(c, "command."+normalizeHandlerName(key), start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.OnText != nil {
			return handleWithSummary(c, "text", start, "", "", func() error {
				return opts.OnText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	routes := []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(textHandler)),
	}}

	if opts.OnMedia == nil {
		return routes
	}

	var media tele.HandlerFunc = func(c tele.Context) error {
		return handleWithSummary(c, "media", timeNow(), "", "", func() error {
			return opts.OnMedia(c)
		})
	}
	for i := len(opts.MediaMiddleware) - 1; i >= 0; i-- {
		media = opts.MediaMiddleware[i](media)
	}
	media = middleware.RecoverMiddleware(middleware.LoggerMiddleware(media))
	for _, ep := range MediaEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: media})
	}
	return routes
}
