package main

import (
	"context"

	"github.com/litetable/litetable-filter/internal/app"
	"github.com/litetable/litetable-filter/internal/config"
	"github.com/litetable/litetable-filter/internal/metrics"
	"github.com/litetable/litetable-filter/internal/server/grpc"
	"github.com/litetable/litetable-filter/internal/table"
	"github.com/litetable/litetable-filter/internal/wal"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a litetable-filter.yaml config file")
	pflag.Parse()

	application, err := initialize(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}

	if err = application.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("application stopped with errors")
	}
}

func initialize(configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var deps []app.Dependency

	tableCfg := &table.Config{
		WAL:        wal.Discard{},
		ShardCount: cfg.ShardCount,
	}
	// the WAL keeps the in-memory tables across restarts
	if cfg.WAL.Enabled {
		walManager, err := wal.New(&wal.Config{
			Path: cfg.DataDir,
		})
		if err != nil {
			return nil, err
		}
		tableCfg.WAL = walManager
	}

	tableStore, err := table.New(tableCfg)
	if err != nil {
		return nil, err
	}
	deps = append(deps, tableStore)

	if cfg.Metrics.Enabled {
		metricsServer, err := metrics.NewServer(&metrics.Config{
			Address: cfg.Server.Address,
			Port:    cfg.Metrics.Port,
		})
		if err != nil {
			return nil, err
		}
		deps = append(deps, metricsServer)
	}

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Address: cfg.Server.Address,
		Port:    cfg.Server.Port,
		Store:   tableStore,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, grpcServer)

	application, err := app.CreateApp(&app.Config{
		ServiceName: "LiteTable Filter",
		StopTimeout: cfg.StopTimeout,
	}, deps...)
	if err != nil {
		return nil, err
	}

	return application, nil
}
