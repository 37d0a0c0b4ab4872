// Leafwise is a plant-care tracking service: AI identification, recurring
// care schedules, guided care plans, and a growth-point profile, served
// over an HTTP API.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/izybotanic/leafwise/internal/api"
	"github.com/izybotanic/leafwise/internal/auth"
	"github.com/izybotanic/leafwise/internal/genai"
	"github.com/izybotanic/leafwise/internal/lockfile"
	"github.com/izybotanic/leafwise/internal/scheduler"
	"github.com/izybotanic/leafwise/internal/store"
	"github.com/izybotanic/leafwise/internal/util"
)

// DefaultStateDir is where Leafwise keeps its data when unconfigured.
const DefaultStateDir = "/var/lib/leafwise"

// DefaultDBFileName is the SQLite database file inside the state directory.
const DefaultDBFileName = "leafwise.db"

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Hold the state directory for the lifetime of the process
	lock, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService, err := auth.NewService(st, auth.WithSecret([]byte(*flags.jwtSecret)))
	if err != nil {
		slog.Error("Failed to initialize auth service", "error", err)
		os.Exit(1)
	}

	aiClient, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		slog.Error("Failed to initialize GenAI client", "error", err)
		os.Exit(1)
	}

	apiOpts := []api.Option{
		api.WithAddr(*flags.apiAddr),
		api.WithStore(st),
		api.WithAuthService(authService),
		api.WithGenAI(aiClient),
		api.WithDigestSchedule(*flags.digestCron),
	}

	slog.Info("Bootstrapping Leafwise with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "digest", *flags.digestCron)
	if err := api.Run(apiOpts...); err != nil {
		slog.Error("Leafwise failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Leafwise exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDriver    string
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	OpenAIModel string
	APIAddr     string
	JWTSecret   string
	DigestCron  string
}

// Flags holds command line flag values
type Flags struct {
	stateDir   *string
	dbDriver   *string
	dbDSN      *string
	openaiKey  *string
	model      *string
	apiAddr    *string
	jwtSecret  *string
	digestCron *string
}

// initializeLogger sets up structured logging, debug level when asked for
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("LEAFWISE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:    os.Getenv("LEAFWISE_DB_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    util.GetenvDefault("LEAFWISE_STATE_DIR", DefaultStateDir),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		APIAddr:     util.GetenvDefault("API_ADDR", api.DefaultAddr),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		DigestCron:  util.GetenvDefault("DIGEST_SCHEDULE", scheduler.DefaultDigestSchedule),
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.DbDriver == "" {
		if strings.HasPrefix(config.DatabaseURL, "postgres://") || strings.HasPrefix(config.DatabaseURL, "postgresql://") {
			config.DbDriver = "postgres"
		} else {
			config.DbDriver = "sqlite3"
		}
	}

	slog.Debug("environment variables loaded",
		"LEAFWISE_DB_DRIVER", config.DbDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"LEAFWISE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"JWT_SECRET_SET", config.JWTSecret != "",
		"DIGEST_SCHEDULE", config.DigestCron)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:   flag.String("state-dir", config.StateDir, "state directory for Leafwise data (overrides $LEAFWISE_STATE_DIR)"),
		dbDriver:   flag.String("db-driver", config.DbDriver, "database driver, sqlite3 or postgres (overrides $LEAFWISE_DB_DRIVER)"),
		dbDSN:      flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		openaiKey:  flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		model:      flag.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		apiAddr:    flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		jwtSecret:  flag.String("jwt-secret", config.JWTSecret, "token signing secret (overrides $JWT_SECRET)"),
		digestCron: flag.String("digest-schedule", config.DigestCron, "cron schedule for the daily care digest (overrides $DIGEST_SCHEDULE)"),
	}
	flag.Parse()
	return flags
}

// ensureDirectoriesExist creates the state directory tree
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		return err
	}
	slog.Debug("State directory ready", "state_dir", *flags.stateDir)
	return nil
}

// buildStore constructs the persistence backend for the configured driver
func buildStore(flags Flags) (store.Store, error) {
	switch *flags.dbDriver {
	case "postgres":
		slog.Debug("Using Postgres store", "dsn_set", *flags.dbDSN != "")
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	default:
		slog.Debug("Using SQLite store", "path", *flags.dbDSN)
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	}
}

// buildGenAIOptions assembles GenAI client options from flags
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.model != "" {
		opts = append(opts, genai.WithModel(*flags.model))
	}
	return opts
}
