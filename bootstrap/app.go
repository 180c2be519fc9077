// Package bootstrap wires configuration, logging, and the storage stack
// into a ready application.
package bootstrap

import (
	"context"
	"fmt"

	"commgraph/config"
	"commgraph/storage"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App holds the wired components shared by every command.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	DB          *storage.SQLite
	Types       *storage.AccountTypeRegistry
	Accounts    *storage.AccountStore
	Artifacts   *storage.ArtifactStore
	DataSources *storage.DataSourceStore
	Instances   *storage.AccountInstanceLinker
	Graph       *storage.RelationshipGraphStore
	Query       *storage.QueryEngine
}

// NewApp loads configuration, builds the logger, opens the case database,
// and seeds the predefined account types.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	sugar := logger.Sugar()

	db, err := storage.NewSQLite(cfg.Database.Path, sugar)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	types, err := storage.NewAccountTypeRegistry(db, cfg.Cache.AccountTypeSize, sugar)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := types.InitPredefinedTypes(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed account types: %w", err)
	}

	accounts := storage.NewAccountStore(db, types, sugar)
	artifacts := storage.NewArtifactStore(db, sugar)
	datasources := storage.NewDataSourceStore(db, sugar)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Sugar:       sugar,
		DB:          db,
		Types:       types,
		Accounts:    accounts,
		Artifacts:   artifacts,
		DataSources: datasources,
		Instances:   storage.NewAccountInstanceLinker(db, accounts, artifacts, sugar),
		Graph:       storage.NewRelationshipGraphStore(db, accounts, sugar),
		Query:       storage.NewQueryEngine(db, accounts, types, datasources, sugar),
	}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(parsed)
	loggerConfig.EncoderConfig.TimeKey = "timestamp"
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Close releases the database and flushes the logger.
func (a *App) Close() error {
	err := a.DB.Close()
	_ = a.Logger.Sync()
	return err
}
