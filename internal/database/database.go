package database

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"retail-erp-backend/internal/config"
	"retail-erp-backend/internal/models"
)

var DB *gorm.DB

// Connect opens the configured database, applies pool settings and stores the
// handle in DB.
func Connect(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:         newLogger(cfg.SQLLog),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s database", cfg.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get database instance")
	}

	if cfg.Driver == config.DriverSQLite {
		// One writer at a time; the file (or shared memory db) lives as long as this connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	log.WithField("driver", cfg.Driver).Info("database connection established")
	DB = db
	return db, nil
}

func dialector(cfg *config.DatabaseConfig) gorm.Dialector {
	dsn := cfg.GetDSN()
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(dsn)
	case config.DriverMySQL:
		return mysql.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}

func newLogger(recordSQL bool) logger.Interface {
	base := logger.New(log.StandardLogger(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	if !recordSQL {
		return base
	}
	return &RecordingLogger{Interface: base, Recorder: SQLRecorder}
}

// Migrate creates or updates the ERP tables. It is safe to run repeatedly.
func Migrate(db *gorm.DB) error {
	log.Info("running schema migrations")
	if err := db.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	log.Info("schema migrations completed")
	return nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
