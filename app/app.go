package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/postbot/bot"
	"github.com/m3rciful/postbot/config"
	"github.com/m3rciful/postbot/core/bootstrap"
	"github.com/m3rciful/postbot/core/buildinfo"
	"github.com/m3rciful/postbot/core/logger"
	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/router"
	"github.com/m3rciful/postbot/services/channels"
	"github.com/m3rciful/postbot/services/posts"
	"github.com/m3rciful/postbot/services/publisher"
	"github.com/m3rciful/postbot/services/shortener"
)

// publishRate paces publish fan-out below Telegram's broadcast limit.
const publishRate = 25

// App holds the wired application.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	gateway  *bot.Gateway
	handlers *bot.Handlers
	username atomic.Value
}

// Bootstrap initializes infrastructure and wires the bot.
func Bootstrap(cfg *config.Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     buildinfo.Version,
		})
		if err != nil {
			logger.L.Warn("sentry init failed",
				slog.String("event", "sentry.init"),
				slog.String("err", err.Error()),
			)
		}
	}

	a := &App{
		cfg:     cfg,
		db:      res.DB,
		gateway: bot.NewGateway(),
	}
	a.username.Store("")

	short := shortener.New(cfg.Shortener)
	postRepo := posts.NewRepository(res.DB)
	channelRepo := channels.NewRepository(res.DB)

	a.handlers = bot.New(bot.Options{
		Admins:      cfg.Telegram.Admins,
		Posts:       postRepo,
		Channels:    channelRepo,
		Publisher:   publisher.New(postRepo, a.gateway, publishRate),
		Shorten:     short.Shorten,
		Gateway:     a.gateway,
		BotUsername: a.botUsername,
	})

	return a, nil
}

func (a *App) botUsername() string {
	name, _ := a.username.Load().(string)
	return name
}

// TelegramRunOptions builds the bot runtime configuration.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	a.handlers.Register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		Admins:        a.cfg.Telegram.Admins,
		OnAdminReject: a.handlers.OnAdminReject,
	})
	routes = append(routes, router.TextRoutes(a.handlers, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.gateway.Bind(rt.Bot)
			if rt.Bot != nil && rt.Bot.Me != nil {
				a.username.Store(rt.Bot.Me.Username)
			}
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			if a.cfg.Sentry.DSN != "" {
				sentry.Flush(2 * time.Second)
			}
			return a.db.Close()
		},
	}, nil
}
