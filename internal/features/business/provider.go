package business

import (
	"fmt"

	"insure-crm/internal/config"
	"insure-crm/internal/database"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewStore picks the business data backend from BUSINESS_STORE.
func NewStore(lc fx.Lifecycle, cfg *config.Config, mongodb *database.MongodbDB, logger *zap.Logger) (Store, error) {
	switch cfg.BusinessStore {
	case "", "mongo":
		return NewMongoStore(mongodb), nil
	case "postgres":
		pg, err := database.NewPostgres(lc, cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pg), nil
	default:
		return nil, fmt.Errorf("unknown BUSINESS_STORE %q", cfg.BusinessStore)
	}
}
