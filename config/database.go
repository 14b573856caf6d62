package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// OpenDatabase connects with the driver selected by cfg.DBDriver.
func OpenDatabase(cfg Config) (*gorm.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return ConnectSQLite(cfg.SQLitePath)
	}
	return ConnectDatabaseWithRetry(cfg), nil
}

// ConnectDatabaseWithRetry connects to MySQL, retrying with backoff until it succeeds.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry(cfg Config) *gorm.DB {
	network := "tcp"
	address := fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort)

	// Cloud SQL: DB_HOST=/cloudsql/<CONNECTION_NAME> is a unix socket.
	if strings.HasPrefix(cfg.DBHost, "/cloudsql/") {
		network = "unix"
		address = cfg.DBHost
	}

	dsnConfig := mysqlDriver.NewConfig()
	dsnConfig.User = cfg.DBUser
	dsnConfig.Passwd = cfg.DBPassword
	dsnConfig.Net = network
	dsnConfig.Addr = address
	dsnConfig.DBName = cfg.DBName
	dsnConfig.MultiStatements = true
	dsnConfig.ParseTime = true
	dsnConfig.Loc = time.UTC
	databaseConfig := dsnConfig.FormatDSN()

	var attempt int
	for {
		attempt++
		conn, err := gorm.Open(mysql.Open(databaseConfig), initConfig())
		if err == nil {
			// Env overrides (optional):
			// - DB_MAX_OPEN_CONNS (default 50)
			// - DB_MAX_IDLE_CONNS (default 25)
			// - DB_CONN_MAX_LIFETIME_SECONDS (default 300)
			// - DB_CONN_MAX_IDLE_TIME_SECONDS (default 60)
			if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
				maxOpen := intFromEnv("DB_MAX_OPEN_CONNS", 50)
				maxIdle := intFromEnv("DB_MAX_IDLE_CONNS", 25)
				connMaxLife := time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second
				connMaxIdle := time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second

				if maxOpen > 0 {
					sqlDB.SetMaxOpenConns(maxOpen)
				}
				if maxIdle >= 0 {
					sqlDB.SetMaxIdleConns(maxIdle)
				}
				if connMaxLife > 0 {
					sqlDB.SetConnMaxLifetime(connMaxLife)
				}
				if connMaxIdle > 0 {
					sqlDB.SetConnMaxIdleTime(connMaxIdle)
				}
			}

			installPlugins(conn)
			log.Printf("connected to database (attempt=%d)", attempt)
			return conn
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// ConnectSQLite opens a sqlite database (a file path or a file: DSN) with the same
// plugins as the MySQL connection. Used for local runs and tests.
func ConnectSQLite(dsn string) (*gorm.DB, error) {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn + "?_foreign_keys=1"
	}
	conn, err := gorm.Open(sqlite.Open(dsn), initConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer; one connection keeps transactions serialized.
	if sqlDB, derr := conn.DB(); derr == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	installPlugins(conn)
	return conn, nil
}

func installPlugins(conn *gorm.DB) {
	if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	if pluginErr := conn.Use(NewTenantGuardPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install tenant guard plugin: %v", pluginErr)
	}
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
		// unique index violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func initLog() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:                  false,
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
