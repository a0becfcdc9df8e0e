package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/talkincode/netmon/config"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// getDatabase opens the configured database, panicking when it is unreachable.
func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	if cfg.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Type {
	case "sqlite":
		_ = os.MkdirAll(filepath.Join(workdir, "data"), 0o755)
		db, err = gorm.Open(sqlite.Open(sqliteDSN(cfg.Name, workdir)), gormConfig)
	case "postgres":
		db, err = gorm.Open(postgres.Open(postgresDSN(cfg)), gormConfig)
	default:
		err = fmt.Errorf("unsupported database type %q", cfg.Type)
	}
	if err != nil {
		zap.S().Errorf("open database error: %s", err.Error())
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	if cfg.Type == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db
}

func postgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
}

// sqliteDSN places relative database names under workdir/data.
func sqliteDSN(name, workdir string) string {
	if name == "" {
		name = "netmon.db"
	}
	if strings.HasPrefix(name, "file:") {
		if strings.Contains(name, "?") {
			return name + "&" + sqlitePragmas
		}
		return name + "?" + sqlitePragmas
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(workdir, "data", name)
	}
	return "file:" + name + "?" + sqlitePragmas
}
