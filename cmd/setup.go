package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/lrx/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadOrCreateConfig reads configPath, creating it from the embedded template when it does not exist.
func (r *Runner) loadOrCreateConfig(configPath string) *shared.Config {
	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
		return config
	}

	r.logger.Info("config file not found, creating from template", "path", configPath)
	if err := shared.CreateConfigFile(configPath); err != nil {
		r.logger.Warn("failed to create config file, using defaults", "error", err)
		return shared.DefaultConfig()
	}

	r.logger.Info("config file created", "path", configPath)
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load created config, using defaults", "error", err)
		config = shared.DefaultConfig()
	}
	return config
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", config.Database.Path, version)
}

// SetupRollback reverts the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	return r.writePlain("✓ Rolled back to schema version %d\n", version)
}

// SetupConfig writes the API and Google OAuth settings to the config file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	config := r.loadOrCreateConfig(configPath)

	if v := cmd.String("api-url"); v != "" {
		config.API.BaseURL = v
	}
	if v := cmd.String("google-client-id"); v != "" {
		config.Auth.GoogleClientID = v
	}
	if v := cmd.String("google-client-secret"); v != "" {
		config.Auth.GoogleClientSecret = v
	}
	if v := cmd.String("redirect-uri"); v != "" {
		config.Auth.RedirectURI = v
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return err
	}
	r.config = config

	r.writePlain("✓ Configuration saved to %s\n", configPath)
	r.writePlain("API: %s\n", config.API.BaseURL)
	if config.Auth.GoogleEnabled() {
		r.writePlain("Google login: enabled\n")
	} else {
		r.writePlain("Google login: not configured\n")
	}
	return nil
}

func (r *Runner) defaultConfigPath() string {
	if r.configPath != "" {
		return r.configPath
	}
	return "config.toml"
}
