package app

import (
	"os"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/talkincode/netmon/internal/domain"
)

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

// DropAll drops every table, history first.
func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(reversed(domain.Tables)...)
}

// InitDb recreates an empty schema.
func (a *Application) InitDb() {
	a.DropAll()
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

func reversed(tables []interface{}) []interface{} {
	out := make([]interface{}, len(tables))
	for i, t := range tables {
		out[len(tables)-1-i] = t
	}
	return out
}
