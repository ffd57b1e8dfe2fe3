package database

import (
	"context"
	"fmt"
	"time"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sand/lbc-exchange/backend/config"
)

const (
	defaultMaxPoolSize       = 10
	defaultConnTimeout       = 5
	defaultHealthCheckPeriod = 1
)

// Postgres bundles the pool with the transactor used by repositories.
type Postgres struct {
	maxPoolSize       int32
	connTimeout       int
	healthCheckPeriod int
	isolation         pgx.TxIsoLevel

	Pool       *pgxpool.Pool
	DBGetter   tx.DBGetter
	Transactor *tx.Transactor
}

// Option configures the pool.
type Option func(*Postgres)

// MaxPoolSize sets the maximum number of pooled connections.
func MaxPoolSize(size int32) Option {
	return func(p *Postgres) {
		if size > 0 {
			p.maxPoolSize = size
		}
	}
}

// ConnTimeout sets the connect timeout in seconds.
func ConnTimeout(seconds int) Option {
	return func(p *Postgres) {
		if seconds > 0 {
			p.connTimeout = seconds
		}
	}
}

// HealthCheckPeriod sets the pool health check period in minutes.
func HealthCheckPeriod(minutes int) Option {
	return func(p *Postgres) {
		if minutes > 0 {
			p.healthCheckPeriod = minutes
		}
	}
}

// Isolation sets the default transaction isolation level of every session.
func Isolation(level pgx.TxIsoLevel) Option {
	return func(p *Postgres) {
		p.isolation = level
	}
}

// New connects to the database named by cfg.DB.DatabaseURL.
func New(cfg *config.Config, opts ...Option) (*Postgres, error) {
	pg := &Postgres{
		maxPoolSize:       defaultMaxPoolSize,
		connTimeout:       defaultConnTimeout,
		healthCheckPeriod: defaultHealthCheckPeriod,
	}
	for _, opt := range opts {
		opt(pg)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DB.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	poolConfig.MaxConns = pg.maxPoolSize
	poolConfig.HealthCheckPeriod = time.Duration(pg.healthCheckPeriod) * time.Minute
	poolConfig.ConnConfig.ConnectTimeout = time.Duration(pg.connTimeout) * time.Second

	if pg.isolation != "" {
		isolation := pg.isolation
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL %s", isolation))
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(pg.connTimeout)*time.Second)
	defer cancel()

	pg.Pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err = pg.Pool.Ping(ctx); err != nil {
		pg.Pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pg.Transactor, pg.DBGetter = tx.NewTransactorFromPool(pg.Pool)

	return pg, nil
}

// Close releases every pooled connection.
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}
