package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/repositories"
	"github.com/desertthunder/lrx/internal/services"
	"github.com/desertthunder/lrx/internal/session"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	// EnvConfigPath overrides the default config.toml location.
	EnvConfigPath = "LRX_CONFIG"
	// EnvDebug enables debug logging, including every API request.
	EnvDebug = "LRX_DEBUG"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv(EnvDebug) != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	configPath := "config.toml"
	if v := os.Getenv(EnvConfigPath); v != "" {
		configPath = v
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	} else {
		config.ApplyEnv()
	}

	httpClient := &http.Client{Timeout: config.API.Timeout()}
	apiService := services.NewAPIService(config.API.BaseURL, httpClient)
	apiService.SetLogger(shared.WithLogger(logger, "component", "api"))

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		API:        apiService,
		HTTPClient: httpClient,
		Logger:     logger,
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		logger.Warn("database unavailable, credentials will not persist", "error", err)
	} else {
		defer db.Close()
		opts.Store = repositories.NewCredentialRepository(db)
		opts.Recents = repositories.NewRecentQueryRepository(db)
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "lrx",
		Usage:    "Search and explore AI learning resources",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		switch {
		case errors.Is(err_, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case errors.Is(err, shared.ErrSignupRequired):
			logger.Warn("sign up to keep searching: lrx auth signup")
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

var _ session.CredentialStore = (*repositories.CredentialRepository)(nil)
