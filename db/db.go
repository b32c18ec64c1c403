package db

import (
	"log"

	"github.com/techagentng/memorybox/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	DB *gorm.DB
}

// StoreEntry is one namespaced key in the local store. The whole conversation
// collection lives under a single key as one serialized array, so every
// mutation rewrites the blob as a unit. Concurrent writers are last-write-wins;
// that is an accepted limitation of the local mode, not something the schema
// tries to prevent.
type StoreEntry struct {
	Key   string `gorm:"primaryKey"`
	Value []byte
}

func GetDB(c *config.Config) *GormDB {
	gormDB := &GormDB{}
	gormDB.Init(c)
	return gormDB
}

func (g *GormDB) Init(c *config.Config) {
	g.DB = getSqliteDB(c)

	if err := migrate(g.DB); err != nil {
		log.Fatalf("unable to run migrations: %v", err)
	}
}

func getSqliteDB(c *config.Config) *gorm.DB {
	gormConfig := &gorm.Config{}
	if c.Env != "prod" {
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	}
	gormDB, err := gorm.Open(sqlite.Open(c.DatabasePath), gormConfig)
	if err != nil {
		log.Fatal(err)
	}

	return gormDB
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&StoreEntry{})
}
