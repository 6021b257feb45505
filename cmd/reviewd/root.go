package main

import (
	"database/sql"
	"fmt"
	"os"

	"degree_plan_review/internal/domain/degreeplan"
	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"
	"degree_plan_review/internal/infra/config"
	idb "degree_plan_review/internal/infra/database"
	"degree_plan_review/internal/infra/logger"
	"degree_plan_review/internal/infra/memory"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Loaded once in PersistentPreRunE and shared by every subcommand.
var cfg *config.AppConfig

var rootCmd = &cobra.Command{
	Use:   "reviewd",
	Short: "Degree plan review service",
	Long: `reviewd runs the multi-stage degree plan review engine: the HTTP API,
the notification dispatcher, the Telegram bot and the scheduled reclassification sweep.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("could not load application configuration: %w", err)
		}
		cfg = loaded
		logger.Init(cfg)
		logger.Log.WithFields(logrus.Fields{
			"store":       cfg.Store,
			"environment": cfg.Environment,
			"log_level":   logger.Log.GetLevel().String(),
		}).Info("Configuration loaded")
		return nil
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, reclassifyCmd, statusCmd, migrateCmd)
}

// stores bundles the repositories behind the configured backend.
type stores struct {
	reviews review.Repository
	plans   degreeplan.Repository
	users   user.Repository
	db      *sql.DB // nil for the memory backend
}

func (s *stores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openStores() (*stores, error) {
	log := logger.Component("store")
	if cfg.Store == config.StoreMemory {
		log.Warn("Using the in-memory store; data is lost on exit")
		m := memory.NewStore()
		return &stores{reviews: m, plans: m, users: m.Users()}, nil
	}

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	log.Info("Database connection established successfully.")
	return &stores{
		reviews: idb.NewPostgresReviewRepository(db),
		plans:   idb.NewPostgresPlanRepository(db),
		users:   idb.NewPostgresUserRepository(db),
		db:      db,
	}, nil
}
