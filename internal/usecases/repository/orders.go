package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sand/lbc-exchange/backend/internal/entities"
	"github.com/sand/lbc-exchange/backend/pkg/database"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// Numeric columns travel as text so decimals survive the round trip exactly.
var orderColumns = []string{
	"id::text AS id",
	"type",
	"status",
	"quantity::text AS quantity",
	"price::text AS price",
	"date",
	"expiry",
	"lbc_address",
	"usdc_address",
	"lbc_requested::text AS lbc_requested",
	"usdc_requested::text AS usdc_requested",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type OrdersRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

func NewOrdersRepository(logger *slog.Logger, pg *database.Postgres) *OrdersRepository {
	return &OrdersRepository{logger: logger, db: pg.DBGetter, transactor: pg.Transactor}
}

func (r *OrdersRepository) InsertOrder(ctx context.Context, order entities.Order) error {
	row := fromEntity(order)

	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO orders (id, type, status, quantity, price, date, expiry, lbc_address, usdc_address, lbc_requested, usdc_requested)
		 VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, $10::numeric, $11::numeric)`,
		row.ID, row.Type, row.Status, row.Quantity, row.Price, row.Date, row.Expiry,
		row.LBCAddress, row.USDCAddress, row.LBCRequested, row.USDCRequested,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *OrdersRepository) FindOrderByID(ctx context.Context, id string) (entities.Order, error) {
	if uuid.Validate(id) != nil {
		return entities.Order{}, ErrOrderNotFound
	}

	query, args, err := psql.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to build order query: %w", err)
	}
	return r.queryOne(ctx, query, args...)
}

// FindOrders lists orders newest first. An address matches either counterparty column.
func (r *OrdersRepository) FindOrders(ctx context.Context, filter entities.OrderFilter) ([]entities.Order, error) {
	builder := psql.Select(orderColumns...).From("orders").OrderBy("date DESC", "id")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Address != "" {
		builder = builder.Where(sq.Or{
			sq.Eq{"usdc_address": filter.Address},
			sq.Eq{"lbc_address": filter.Address},
		})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}
	return r.queryMany(ctx, query, args...)
}

// UpdateOrderStatus locks the row, checks it is still in status from, and writes to.
func (r *OrdersRepository) UpdateOrderStatus(ctx context.Context, id string, from, to entities.OrderStatus) (entities.Order, error) {
	if uuid.Validate(id) != nil {
		return entities.Order{}, ErrOrderNotFound
	}

	var updated entities.Order
	err := r.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var status string
		err := r.db(ctx).QueryRow(ctx, "SELECT status FROM orders WHERE id = $1 FOR UPDATE", id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order %s: %w", id, err)
		}

		if entities.OrderStatus(status) != from {
			return ErrStatusChanged
		}

		query, args, err := psql.Update("orders").
			Set("status", string(to)).
			Where(sq.Eq{"id": id}).
			Suffix("RETURNING " + joinColumns(orderColumns)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build status update: %w", err)
		}

		updated, err = r.queryOne(ctx, query, args...)
		return err
	})
	if err != nil {
		return entities.Order{}, err
	}

	return updated, nil
}

func (r *OrdersRepository) FindExpiredPendingOrders(ctx context.Context, now time.Time) ([]entities.Order, error) {
	query, args, err := psql.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"status": string(entities.OrderStatusPending)}).
		Where(sq.LtOrEq{"expiry": now}).
		OrderBy("expiry").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build expired orders query: %w", err)
	}
	return r.queryMany(ctx, query, args...)
}

func (r *OrdersRepository) queryOne(ctx context.Context, query string, args ...any) (entities.Order, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to query order: %w", err)
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[orderRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to collect order row: %w", err)
	}

	return row.toEntity()
}

func (r *OrdersRepository) queryMany(ctx context.Context, query string, args ...any) ([]entities.Order, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[orderRow])
	if err != nil {
		r.logger.Error("failed to collect orders rows", "error", err)
		return nil, err
	}

	orders := make([]entities.Order, 0, len(collected))
	for _, row := range collected {
		order, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
