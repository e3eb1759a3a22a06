package database

import (
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/tesfa/internal/config"
	"github.com/example/tesfa/internal/models"
)

// Connect opens the database handle and caps the connection pool. It does
// not ping the server: schema setup runs later through Init so the process
// can start accepting traffic before the database is reachable.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Warn),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return conn, nil
}

// Init prepares the schema: ensures the database exists, runs migrations
// and seeds the role lookup. Callers run it asynchronously at startup and
// log failures instead of exiting.
func Init(conn *gorm.DB, dsn string) error {
	if err := ensureDatabase(dsn); err != nil {
		return err
	}

	if err := conn.AutoMigrate(&models.Role{}, &models.User{}, &models.Payment{}); err != nil {
		return err
	}

	return seedRoles(conn)
}

func seedRoles(conn *gorm.DB) error {
	roles := []models.Role{
		{ID: models.RoleAdmin, Name: "admin", Description: "Administrator with full access"},
		{ID: models.RoleDonor, Name: "donor", Description: "Regular donor"},
	}

	for _, role := range roles {
		var existing models.Role
		err := conn.First(&existing, role.ID).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := conn.Create(&role).Error; err != nil {
			return err
		}
	}

	return nil
}

// ensureDatabase creates the target database when it does not exist yet.
func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
