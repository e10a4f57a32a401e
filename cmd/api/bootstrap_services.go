package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	authcore "github.com/NordCoder/Stockpulse/internal/auth"
	config "github.com/NordCoder/Stockpulse/internal/config/api"
	"github.com/NordCoder/Stockpulse/internal/domain/audit"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
	"github.com/NordCoder/Stockpulse/internal/services/api/auth"
	"github.com/NordCoder/Stockpulse/internal/services/api/users"
)

type services struct {
	auth  *auth.Usecase
	users *users.Usecase
	guard *auth.Guard
}

func initServices(cfg *config.Config, store user.Store, sink audit.Sink, logger *zap.Logger) (*services, error) {
	hasher, err := authcore.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	codec, err := authcore.NewCodec(authcore.CodecConfig{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &services{
		auth:  auth.NewUseCase(store, hasher, codec, auth.Config{Logger: logger, Audit: sink}),
		users: users.NewUseCase(store, users.Config{Logger: logger, Audit: sink}),
		guard: auth.NewGuard(codec, store, logger),
	}, nil
}

// promoteBootstrapAdmins grants admin to configured usernames that already exist.
func promoteBootstrapAdmins(ctx context.Context, cfg *config.Config, svc *services, logger *zap.Logger) {
	for _, name := range cfg.Auth.BootstrapAdmins {
		u, err := svc.users.Get(ctx, name)
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("bootstrap admin not registered", zap.String("username", name))
			continue
		}
		if err != nil {
			logger.Error("bootstrap admin lookup", zap.String("username", name), zap.Error(err))
			continue
		}
		if u.Role == user.RoleAdmin {
			continue
		}
		if _, err := svc.auth.PromoteRole(ctx, u.ID); err != nil {
			logger.Error("bootstrap admin promote", zap.String("username", name), zap.Error(err))
			continue
		}
		logger.Info("bootstrap admin promoted", zap.String("username", name))
	}
}
