package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vasiliy-maslov/aws-rds-cart/internal/cart"
	"github.com/vasiliy-maslov/aws-rds-cart/internal/config"
)

type Postgres struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
	Gorm *gorm.DB

	cfg config.PostgresConfig
}

// ConnString returns the postgres:// URL the pool connects with.
// Empty values stay empty and fail at connect time.
func ConnString(cfg config.PostgresConfig) string {
	return databaseURL("postgres", cfg)
}

func databaseURL(scheme string, cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port()),
		Path:   "/" + cfg.DBName,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{cfg.SSLMode}}.Encode()
	}
	return u.String()
}

func New(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connstr: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// GORM работает поверх того же пула.
	sqlDB := stdlib.OpenDBFromPool(dbPool)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		_ = sqlDB.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port()).
		Str("dbname", cfg.DBName).
		Msg("Connected to PostgreSQL")
	return &Postgres{Pool: dbPool, SQL: sqlDB, Gorm: gormDB, cfg: cfg}, nil
}

// Synchronize creates or alters the cart tables to match the entity declarations.
func (p *Postgres) Synchronize(ctx context.Context) error {
	if err := p.Gorm.WithContext(ctx).AutoMigrate(cart.Entities()...); err != nil {
		return fmt.Errorf("failed to synchronize schema: %w", err)
	}
	log.Info().Msg("Schema synchronized")
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

func (p *Postgres) Close() {
	if p.SQL != nil {
		_ = p.SQL.Close()
	}
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("Database connection closed")
	}
}
