package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Rrens/flexy-chat/internal/client"
	"github.com/Rrens/flexy-chat/internal/config"
	"github.com/Rrens/flexy-chat/internal/realtime"
	"github.com/Rrens/flexy-chat/internal/repository/redis"
	"github.com/Rrens/flexy-chat/internal/repository/sqlite"
	"github.com/Rrens/flexy-chat/internal/security"
	"github.com/Rrens/flexy-chat/internal/service"
	"github.com/rs/zerolog/log"
)

// app is the fully wired client runtime
type app struct {
	cfg     *config.Config
	db      *sqlite.DB
	redis   *redis.Client
	journal *sqlite.MessageJournal
	tokens  *security.TokenSource
	backend *client.Client
	manager *realtime.Manager
	chat    *service.ChatService
}

// openStore opens and migrates the local store
func openStore(ctx context.Context, cfg *config.Config) (*sqlite.DB, error) {
	db, err := sqlite.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := sqlite.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// newBackend builds the REST client and its credential source
func newBackend(ctx context.Context, cfg *config.Config, db *sqlite.DB) (*client.Client, *security.TokenSource, error) {
	encryptor, err := security.NewEncryptorFromSecret(cfg.Auth.StoreSecret, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	opts := []security.TokenOption{security.WithExpiryLeeway(cfg.Auth.ExpiryLeeway)}
	if cfg.Auth.DevFallback {
		opts = append(opts, security.WithDevFallback())
	}
	tokens := security.NewTokenSource(sqlite.NewCredentialStore(db, encryptor), opts...)
	if err := tokens.Load(ctx); err != nil {
		// unreadable credential, e.g. after the store secret changed
		log.Warn().Err(err).Msg("stored credential ignored, log in again")
	}

	backend := client.New(cfg.Backend.APIURL, tokens,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Backend.HTTPTimeout}),
		client.WithPolling(cfg.Upload.PollInterval, cfg.Upload.PollTimeout),
	)
	return backend, tokens, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, journal: sqlite.NewMessageJournal(db)}

	a.backend, a.tokens, err = newBackend(ctx, cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	chatOpts := []service.ChatOption{
		service.WithJournal(a.journal),
		service.WithHistoryLimit(cfg.Chat.HistoryLimit),
		service.WithDegradedReplyDelay(cfg.Chat.DegradedReplyDelay),
	}

	if cfg.Redis.Enabled {
		a.redis, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without history cache")
		} else {
			chatOpts = append(chatOpts, service.WithHistoryCache(redis.NewHistoryCache(a.redis, cfg.Redis.CacheTTL)))
		}
	}

	a.manager = realtime.NewManager(&realtime.WebsocketDialer{}, a.tokens,
		realtime.WithEndpoint(cfg.Backend.WSURL),
		realtime.WithPolicy(cfg.Chat.Policy),
	)
	a.chat = service.NewChatService(a.backend, a.backend, a.manager, chatOpts...)
	a.manager.SetHandlers(realtime.Handlers{
		OnMessage: a.chat.HandleFrame,
		OnRetryScheduled: func(attempt int, delay time.Duration) {
			log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("chat reconnect scheduled")
		},
	})

	return a, nil
}

// Close tears the runtime down in reverse order of construction
func (a *app) Close() {
	a.manager.Close()
	a.chat.Close()
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Close()
}
