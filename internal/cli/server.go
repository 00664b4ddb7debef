package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"qa-live-service/internal/app"
	"qa-live-service/internal/config"
	"qa-live-service/internal/domain"
	"qa-live-service/internal/infra/memory"
	"qa-live-service/internal/infra/postgres"
	redisinfra "qa-live-service/internal/infra/redis"
	transport "qa-live-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live question server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), s, cfg, logger)
		},
	}
}

func runServer(ctx context.Context, s settings, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, closeBackends, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackends()

	finalPort := firstSet(s.Port, cfg.Server.Port, "8080")
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	sweeper := app.NewSweeper(service, config.TTLDuration(cfg.Lifecycle.SweepInterval, time.Second), logger)
	shutdownTimeout := config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting live question service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildService picks a backend per concern: Postgres for persistence when configured,
// otherwise Redis, otherwise process memory. Redis also caches questions and fans out
// state changes between instances.
func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app.QAService, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*app.QAService, func(), error) {
		closeAll()
		return nil, nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
	}

	var content *memory.Content
	if cfg.Content.Path != "" {
		loaded, err := memory.LoadContentFile(cfg.Content.Path)
		if err != nil {
			return fail(fmt.Errorf("load content: %w", err))
		}
		content = &loaded
	}

	var (
		stores app.Stores
		loader memory.QuestionLoader
	)
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return fail(err)
		}
		db := postgres.Open(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		closers = append(closers, pool.Close)

		stores = app.Stores{
			Groups:       postgres.NewGroupStateStore(db),
			Responses:    postgres.NewResponseLogStore(db),
			Participants: postgres.NewParticipantStore(db),
			Scores:       postgres.NewSessionScoreStore(db),
		}
		loader = postgres.NewQuestionLoader(pool)
		logger.Info("using postgres stores")
	case redisClient != nil:
		stores = app.Stores{
			Groups:       redisinfra.NewGroupStateStore(redisClient),
			Responses:    redisinfra.NewResponseLogStore(redisClient),
			Participants: redisinfra.NewParticipantStore(redisClient),
			Scores:       redisinfra.NewSessionScoreStore(redisClient),
		}
		logger.Info("using redis stores")
	default:
		stores = app.Stores{
			Groups:       memory.NewGroupStateStore(),
			Responses:    memory.NewResponseLogStore(),
			Participants: memory.NewParticipantStore(),
			Scores:       memory.NewSessionScoreStore(),
		}
		logger.Warn("using in-memory stores; state is lost on restart")
	}
	if loader == nil {
		questions := map[string]domain.Question{}
		if content != nil {
			questions = content.Questions()
		}
		loader = memory.NewStaticQuestionLoader(questions)
	}

	questionTTL := config.TTLDuration(cfg.Question.TTL, 10*time.Minute)
	var (
		questions app.QuestionRepository
		notifier  app.Notifier
	)
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
		notifier = redisinfra.NewNotifier(redisClient, logger)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		notifier = memory.NewHub()
	}

	service := app.NewQAService(stores, questions, notifier, app.WithLogger(logger))

	// Postgres rosters come from the seed command; other backends take them from the content file.
	if content != nil && cfg.Postgres.URL == "" {
		for _, p := range content.Participants() {
			if _, err := service.RegisterParticipant(ctx, domain.SystemPrincipal, p); err != nil {
				return fail(fmt.Errorf("register participant %s: %w", p.ParticipantID, err))
			}
		}
	}
	return service, closeAll, nil
}
