package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoArmGo/GeoPhoto/internal/config"
	"github.com/GoArmGo/GeoPhoto/internal/database/migrations"
)

// Client представляет клиент для взаимодействия с PostgreSQL.
// sqlx обслуживает записи о фото и миграции, gorm — пользователей; пул соединений общий.
type Client struct {
	DB     *sqlx.DB
	Gorm   *gorm.DB
	dsn    string
	logger *slog.Logger
}

// NewClient открывает подключение к PostgreSQL
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	start := time.Now()

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open PostgreSQL connection", "error", err)
		return nil, fmt.Errorf("ошибка открытия соединения с БД: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ошибка инициализации GORM: %w", err)
	}

	logger.Info("PostgreSQL connection established successfully",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Client{DB: db, Gorm: gdb, dsn: cfg.DatabaseURL, logger: logger}, nil
}

// Migrate применяет миграции схемы на отдельном подключении, не занимая пул
func (c *Client) Migrate() error {
	start := time.Now()
	if err := migrations.MigrateUpDSN(c.dsn, migrations.Postgres); err != nil {
		c.logger.Error("failed to apply migrations", "error", err)
		return fmt.Errorf("ошибка при применении миграций: %w", err)
	}
	c.logger.Info("database schema is up to date", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// CheckMigrations проверяет, что схема на последней версии
func (c *Client) CheckMigrations() error {
	return migrations.CheckDBMigrationStatusDSN(c.dsn, migrations.Postgres)
}

func (c *Client) Close() error {
	start := time.Now()
	err := c.DB.Close()
	if err != nil {
		c.logger.Error("failed to close database connection", "error", err)
		return err
	}
	c.logger.Info("database connection closed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
