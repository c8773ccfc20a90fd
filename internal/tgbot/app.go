package tgbot

import (
	"context"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/intakebot/core/bootstrap"
	"github.com/m3rciful/intakebot/core/cmd"
	"github.com/m3rciful/intakebot/core/logger"
	tg "github.com/m3rciful/intakebot/core/telegram"
	"github.com/m3rciful/intakebot/core/telegram/sender"
	"github.com/m3rciful/intakebot/core/telegram/state"
	"github.com/m3rciful/intakebot/internal/intake"
)

// App wires the intake service into the Telegram runtime.
type App struct {
	cfg    *Config
	store  state.Store
	engine *intake.Engine
}

var _ cmd.TelegramApp = (*App)(nil)

// NewApp builds an App over an opened session store.
func NewApp(cfg *Config, store state.Store) *App {
	return &App{
		cfg:    cfg,
		store:  store,
		engine: intake.NewEngine(store, nil),
	}
}

// Bootstrap initializes logging and storage for cfg. It is the
// cmd.Options.Bootstrap hook.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("tgbot: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Storage:  cfg.Storage,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, res.Store), nil
}

// LoadCarrier adapts LoadConfig to cmd.Options.LoadConfig.
func LoadCarrier(path string) (cmd.ConfigCarrier, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// TelegramRunOptions assembles middlewares and routes for the runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a.cfg == nil {
		return tg.RunOptions{}, fmt.Errorf("tgbot: nil config")
	}
	core := &a.cfg.Config
	return tg.RunOptions{
		Config:            core,
		Registry:          tg.NewRegistry(),
		DispatcherOptions: sender.OptionsFromConfig(core.Sender),
		Middlewares: tg.DefaultMiddlewares(core, tg.MiddlewareOptions{
			OnLimited:   onLimited,
			PrivateOnly: true,
		}),
		BuildRoutes: a.buildRoutes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			logger.Info(ctx, "app", "intake.ready",
				slog.Int64("group_id", a.cfg.GroupID),
				slog.String("storage", a.cfg.Storage.Driver),
				slog.Int("callbacks", len(rt.Registry.ListCallbacks())),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			logger.Info(ctx, "app", "intake.stats",
				slog.Uint64("sent", rt.Dispatcher.SentCount()),
				slog.Uint64("send_errors", rt.Dispatcher.ErrorCount()),
			)
			return nil
		},
	}, nil
}

func (a *App) buildRoutes(bot *tele.Bot, rt tg.Runtime) ([]tg.Route, error) {
	svc := a.Service(NewMessenger(bot, rt.Dispatcher))
	h := NewHandlers(svc)
	h.Register(rt.Registry)
	return h.Routes(rt.Registry), nil
}

// Service builds the intake service sending through m.
func (a *App) Service(m intake.Messenger) *intake.Service {
	return intake.NewService(a.engine, m, a.cfg.GroupID)
}

// Close releases the session store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
