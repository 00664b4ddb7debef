package cli

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"qa-live-service/internal/domain"
	"qa-live-service/internal/infra/memory"
	"qa-live-service/internal/infra/postgres"
	redisinfra "qa-live-service/internal/infra/redis"
)

// NewSeedCmd loads a YAML content file into Postgres.
func NewSeedCmd() *cobra.Command {
	var contentPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions and rosters from a content file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := firstSet(contentPath, cfg.Content.Path)
			if path == "" {
				return fmt.Errorf("content path not configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg, logger); err != nil {
				return err
			}

			content, err := memory.LoadContentFile(path)
			if err != nil {
				return fmt.Errorf("load content: %w", err)
			}

			db := postgres.Open(cfg.Postgres.URL)
			defer db.Close()
			result, err := postgres.SeedContent(cmd.Context(), db, content, domain.SystemPrincipal, time.Now().UTC())
			if err != nil {
				return err
			}
			logger.Info("content seeded", "path", path, "questions", result.Questions, "participants", result.Participants)

			if cfg.Redis.Addr != "" {
				invalidateCachedQuestions(cmd.Context(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, content)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contentPath, "content", "", "content file to load (overrides content.path)")
	return cmd
}

// invalidateCachedQuestions drops cached copies so running instances see the new content.
func invalidateCachedQuestions(ctx context.Context, addr, password string, db int, content memory.Content) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	defer client.Close()
	cache := redisinfra.NewQuestionRepository(client, nil, 0)
	for id := range content.Questions() {
		_ = cache.Invalidate(ctx, id)
	}
}
