package api

import (
	"fmt"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
	"github.com/ispadmin-io/ispadmin/services/subscription/config"
	"github.com/ispadmin-io/ispadmin/services/subscription/db"
	"github.com/ispadmin-io/ispadmin/services/subscription/saga"
	"go.uber.org/zap"
)

type HttpServer struct {
	logger       *zap.Logger
	db           db.Database
	orchestrator *saga.Orchestrator
	cache        *cache.Cache
}

func InitializeHttpServer(
	logger *zap.Logger,
	cfg config.SubscriptionConfig,
	orchestrator *saga.Orchestrator,
) (*HttpServer, error) {
	logger.Info("Initializing http server")

	pdb, err := db.NewDatabase(cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("new postgres client: %w", err)
	}
	if err := pdb.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
	})

	return &HttpServer{
		logger:       logger,
		db:           pdb,
		orchestrator: orchestrator,
		cache: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(2000, time.Minute),
		}),
	}, nil
}
