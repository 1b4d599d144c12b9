package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/namastexlabs/automagik-omni/internal/channel"
	"github.com/namastexlabs/automagik-omni/internal/channel/adapters/discord"
	"github.com/namastexlabs/automagik-omni/internal/channel/adapters/whatsapp"
	"github.com/namastexlabs/automagik-omni/internal/config"
	"github.com/namastexlabs/automagik-omni/internal/handlers"
	"github.com/namastexlabs/automagik-omni/internal/instance"
	"github.com/namastexlabs/automagik-omni/internal/logger"
	"github.com/namastexlabs/automagik-omni/internal/server"
	"github.com/namastexlabs/automagik-omni/internal/version"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideMappings(cfg config.Config) (channel.Mappings, error) {
	return channel.LoadMappings(cfg.Mappings.Path)
}

func provideStore(lc fx.Lifecycle, cfg config.Config, log *slog.Logger) (*instance.Store, error) {
	store, err := instance.NewStore(cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open instance store: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func provideQuota(cfg config.Config) *channel.Quota {
	return channel.NewQuota(cfg.Quota.Limit, cfg.Quota.Window())
}

func provideWhatsAppHandler(cfg config.Config, log *slog.Logger, mappings channel.Mappings) *whatsapp.Handler {
	client := whatsapp.NewClient(log, cfg.WhatsApp.Timeout(), cfg.WhatsApp.RequestsPerSecond)
	return whatsapp.NewHandler(log, client, mappings)
}

func provideDiscordManager(cfg config.Config, log *slog.Logger) *discord.Manager {
	return discord.NewManager(log, cfg.Discord.MaxFailures)
}

func provideDiscordHandler(log *slog.Logger, manager *discord.Manager, mappings channel.Mappings) *discord.Handler {
	return discord.NewHandler(log, manager, mappings)
}

func provideChannelRegistry(quota *channel.Quota, wa *whatsapp.Handler, dc *discord.Handler) *channel.Registry {
	registry := channel.NewRegistry()
	registry.MustRegister(channel.WithQuota(wa, quota))
	registry.MustRegister(channel.WithQuota(dc, quota))
	return registry
}

func provideInstanceResolver(store *instance.Store) handlers.InstanceResolver {
	return store
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.APIKey, params.ServerHandlers...)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

// startDiscordConnections brings up a gateway session for every stored Discord
// instance and tears them all down on shutdown.
func startDiscordConnections(lc fx.Lifecycle, manager *discord.Manager, store *instance.Store, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			items, err := store.ListByType(ctx, channel.TypeDiscord)
			if err != nil {
				return fmt.Errorf("list discord instances: %w", err)
			}
			for _, item := range items {
				if err := manager.Start(ctx, item.Channel()); err != nil {
					log.Warn("discord connection not started",
						slog.String("instance", item.Name),
						slog.Any("error", err),
					)
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return manager.StopAll(ctx)
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting Omni %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideMappings,
			provideStore,
			provideQuota,

			provideWhatsAppHandler,
			provideDiscordManager,
			provideDiscordHandler,
			provideChannelRegistry,
			provideInstanceResolver,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewInstancesHandler),
			provideServerHandler(handlers.NewOmniHandler),

			provideServer,
		),
		fx.Invoke(
			startDiscordConnections,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}
