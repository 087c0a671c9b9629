// Package dsn provides Data Source Name construction and connection opening
// for the supported gorm engines.
package dsn

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/logger/adapter/stdlogger"
)

const (
	// EngineSQLite stores everything in a single file, see DB.Path.
	EngineSQLite = "sqlite"
	// EngineMySQL connects to MySQL or MariaDB.
	EngineMySQL = "mysql"
	// EnginePostgres connects to PostgreSQL.
	EnginePostgres = "postgres"

	slowQueryThreshold = 200 * time.Millisecond
)

// Create builds the Data Source Name from the configuration.
func Create(db config.DB) (string, error) {
	switch db.GormEngine {
	case EngineSQLite, "":
		if db.Extras == "" {
			return db.Path, nil
		}

		return db.Path + "?" + db.Extras, nil
	case EngineMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			db.Port,
			db.Name,
			db.Extras,
		), nil
	case EnginePostgres:
		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			db.Host,
			db.Port,
			db.User,
			db.Password,
			db.Name,
		)
		if db.Extras != "" {
			out += " " + db.Extras
		}

		return out, nil
	default:
		return "", apperr.Config("unknown gorm engine "+db.GormEngine, nil)
	}
}

// Dialector returns the gorm dialector for the configured engine.
func Dialector(db config.DB) (gorm.Dialector, error) {
	source, err := Create(db)
	if err != nil {
		return nil, err
	}

	switch db.GormEngine {
	case EngineMySQL:
		return mysql.Open(source), nil
	case EnginePostgres:
		return postgres.Open(source), nil
	default:
		return sqlite.Open(source), nil
	}
}

// Open connects to the configured database. Driver specific constraint
// errors are translated so gorm.ErrDuplicatedKey can be matched.
func Open(db config.DB, devMode bool) (*gorm.DB, error) {
	dialector, err := Dialector(db)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if devMode {
		level = gormlogger.Info
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(stdlogger.NewComponent("gorm"), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, apperr.Data("could not open "+db.GormEngine+" database", err)
	}

	return conn, nil
}
