package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Stockpulse/internal/config/api"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
	"github.com/NordCoder/Stockpulse/internal/repository/memory"
	pg "github.com/NordCoder/Stockpulse/internal/repository/postgres"
	rds "github.com/NordCoder/Stockpulse/internal/repository/redis"
)

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (user.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pg.New(ctx, cfg.Store.Postgres)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store ready", zap.String("driver", "postgres"))
		return pg.NewUserRepo(db), db.Close, nil
	case config.DriverRedis:
		rdb, err := rds.NewClient(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store ready", zap.String("driver", "redis"), zap.String("addr", cfg.Store.Redis.Addr))
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("redis close", zap.Error(err))
			}
		}
		return rds.NewUserRepo(rdb, cfg.Store.Redis.Prefix, cfg.Store.Redis.OpTimeout), closeFn, nil
	case config.DriverMemory:
		logger.Warn("using in-memory store; identities are lost on restart")
		return memory.NewUserRepo(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
