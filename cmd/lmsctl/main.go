package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vnkhanh/e-learning-backend/config"
	"github.com/vnkhanh/e-learning-backend/llm"
	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/repository"
	"github.com/vnkhanh/e-learning-backend/services"
)

var rootCmd = &cobra.Command{
	Use:           "lmsctl",
	Short:         "Maintenance commands for the e-learning backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table (enables pgvector on Postgres)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := config.ConnectDatabase(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := config.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migration complete", "db", cfg.DB.Name)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild lesson embeddings for one lesson or a whole course",
	RunE: func(cmd *cobra.Command, args []string) error {
		lessonFlag, _ := cmd.Flags().GetString("lesson")
		courseFlag, _ := cmd.Flags().GetString("course")
		if (lessonFlag == "") == (courseFlag == "") {
			return fmt.Errorf("exactly one of --lesson or --course is required")
		}

		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := config.ConnectDatabase(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		providers, err := llm.NewEmbeddingProviders(cmd.Context(), cfg.AI, log)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}
		defer providers.Close()
		repos := repository.NewRepos(db, log)
		indexer := services.NewIndexService(log, repos.Lessons, repos.Embeddings, providers.Embedder, nil, cfg.AI.ChunkSize)

		if lessonFlag != "" {
			id, err := uuid.Parse(lessonFlag)
			if err != nil {
				return fmt.Errorf("invalid --lesson: %w", err)
			}
			res, err := indexer.IndexLesson(cmd.Context(), id)
			if err != nil {
				return err
			}
			printResult(cmd, *res)
			return nil
		}

		id, err := uuid.Parse(courseFlag)
		if err != nil {
			return fmt.Errorf("invalid --course: %w", err)
		}
		results, err := indexer.IndexCourse(cmd.Context(), id)
		for _, res := range results {
			printResult(cmd, res)
		}
		return err
	},
}

func printResult(cmd *cobra.Command, res services.IndexResult) {
	if res.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tskipped (no content)\n", res.LessonID)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d chunks (replaced %d)\n", res.LessonID, res.Chunks, res.Replaced)
}

func setup() (config.Config, *logger.Logger, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func init() {
	reindexCmd.Flags().String("lesson", "", "Lesson ID to reindex")
	reindexCmd.Flags().String("course", "", "Course ID whose lessons should all be reindexed")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reindexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
