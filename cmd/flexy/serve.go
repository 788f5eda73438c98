package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rrens/flexy-chat/internal/api"
	"github.com/Rrens/flexy-chat/internal/api/handler"
	"github.com/Rrens/flexy-chat/internal/repository/redis"
	"github.com/Rrens/flexy-chat/internal/security"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var (
		workspaceID int64
		sessionID   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat runtime behind the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if workspaceID == 0 {
				workspaceID = c.cfg.Chat.WorkspaceID
			}
			return a.serve(ctx, workspaceID, sessionID)
		},
	}

	cmd.Flags().Int64Var(&workspaceID, "workspace", 0, "workspace to open a chat session in")
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing chat session")
	return cmd
}

func (a *app) serve(ctx context.Context, workspaceID int64, sessionID string) error {
	cfg := a.cfg

	if cfg.Store.Retention > 0 {
		pruned, err := a.journal.Prune(ctx, time.Now().Add(-cfg.Store.Retention))
		if err != nil {
			log.Warn().Err(err).Msg("failed to prune journal")
		} else if pruned > 0 {
			log.Info().Int64("messages", pruned).Msg("journal pruned")
		}
	}

	if workspaceID > 0 {
		active := a.chat.Activate(ctx, workspaceID, sessionID)
		log.Info().Int64("workspace_id", workspaceID).Str("session_id", active).Msg("chat session active")
	}

	deps := api.Deps{
		Chat:        a.chat,
		Connection:  a.manager,
		Auth:        a.backend,
		Workspaces:  a.backend,
		Dashboards:  a.backend,
		Files:       a.backend,
		Insights:    a.backend,
		Ready:       map[string]handler.Pinger{"store": a.db},
		CORSOrigins: cfg.Server.CORSOrigins,
		Timeout:     cfg.Server.WriteTimeout,
	}
	if cfg.Auth.JWTSecret != "" {
		deps.JWT = security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	} else {
		log.Warn().Msg("auth.jwt_secret is empty, local API is unauthenticated")
	}
	if a.redis != nil {
		deps.Ready["redis"] = a.redis
		deps.Limiter = redis.NewRateLimiter(a.redis, cfg.Server.RateLimit.RequestsPerMinute, cfg.Server.RateLimit.Burst)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		// no WriteTimeout: the message stream is long-lived
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting local API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("shutting down local API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
