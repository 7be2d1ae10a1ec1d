package main

import (
	"github.com/rowanvale/questboard/internal/config"
	"github.com/rowanvale/questboard/internal/db"
	"gorm.io/gorm"
)

// connectFromConfig loads the config file and opens the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	gdb, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gdb, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "mysql" {
		return db.ConnectMySQL(cfg.Database.User, cfg.Database.Password,
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	}
	return db.ConnectSQLite(cfg.Database.Path)
}
