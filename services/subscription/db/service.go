package db

import (
	"fmt"

	"github.com/ispadmin-io/ispadmin/pkg/config"
	"github.com/ispadmin-io/ispadmin/pkg/postgres"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Database struct {
	Orm *gorm.DB
}

func NewDatabase(cfg config.Postgres, logger *zap.Logger) (Database, error) {
	pgCfg := postgres.Config{
		Host:    cfg.Host,
		Port:    cfg.Port,
		User:    cfg.Username,
		Passwd:  cfg.Password,
		DB:      cfg.DB,
		SSLMode: cfg.SSLMode,
	}
	orm, err := postgres.NewClient(&pgCfg, logger)
	if err != nil {
		return Database{}, fmt.Errorf("new postgres client: %w", err)
	}

	return Database{Orm: orm}, nil
}

func (db Database) Initialize() error {
	return db.Orm.AutoMigrate(
		&model.Subscription{},
		&model.NetworkConfig{},
		&model.AddressAssignment{},
		&model.PoolAddress{},
		&model.ServicePackage{},
		&model.PackageZone{},
		&model.Zone{},
		&model.Node{},
	)
}
