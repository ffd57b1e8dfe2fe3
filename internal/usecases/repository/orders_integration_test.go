//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sand/lbc-exchange/backend/config"
	"github.com/sand/lbc-exchange/backend/internal/entities"
	"github.com/sand/lbc-exchange/backend/pkg/database"
	"github.com/sand/lbc-exchange/backend/pkg/logger"
)

const (
	dbName     = "exchange"
	dbUser     = "exchange"
	dbPassword = "exchange"

	startupTimeout = 60 * time.Second
)

func newPostgresRepository(t *testing.T) (context.Context, *OrdersRepository, *database.Postgres) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	container, err := pgContainer.Run(ctx,
		"postgres:17.0-alpine3.20",
		pgContainer.WithDatabase(dbName),
		pgContainer.WithUsername(dbUser),
		pgContainer.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connection, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.DB.DatabaseURL = connection

	pg, err := database.New(cfg, database.MaxPoolSize(4))
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	require.NoError(t, database.RunMigrations(logger.Discard(), connection, "../../../migrations"))

	return ctx, NewOrdersRepository(logger.Discard(), pg), pg
}

func TestOrdersRepositoryRoundTrip(t *testing.T) {
	ctx, repo, _ := newPostgresRepository(t)

	buy := testOrder(entities.OrderTypeBuyLBC, baseTime)
	buy.Quantity = decimal.RequireFromString("285.71")
	buy.LBCRequested = decimal.NewNullDecimal(buy.Quantity)
	sell := testOrder(entities.OrderTypeSellLBC, baseTime.Add(time.Minute))
	sell.USDCRequested = decimal.NewNullDecimal(decimal.RequireFromString("0.35"))

	require.NoError(t, repo.InsertOrder(ctx, buy))
	require.NoError(t, repo.InsertOrder(ctx, sell))

	found, err := repo.FindOrderByID(ctx, buy.ID)
	require.NoError(t, err)
	assert.Equal(t, buy.ID, found.ID)
	assert.True(t, buy.Quantity.Equal(found.Quantity))
	assert.False(t, found.Price.Valid)
	assert.Equal(t, testLBCAddress, found.LBCAddress)
	assert.Empty(t, found.USDCAddress)
	assert.True(t, found.Date.Equal(buy.Date))
	assert.True(t, found.Expiry.Equal(buy.Expiry))

	found, err = repo.FindOrderByID(ctx, sell.ID)
	require.NoError(t, err)
	require.True(t, found.Price.Valid)
	assert.True(t, decimal.RequireFromString("0.0035").Equal(found.Price.Decimal))
	require.True(t, found.USDCRequested.Valid)
	assert.True(t, decimal.RequireFromString("0.35").Equal(found.USDCRequested.Decimal))

	_, err = repo.FindOrderByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrdersRepositoryFindOrders(t *testing.T) {
	ctx, repo, _ := newPostgresRepository(t)

	var ids []string
	for i := 0; i < 5; i++ {
		order := testOrder(entities.OrderTypeSellLBC, baseTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.InsertOrder(ctx, order))
		ids = append(ids, order.ID)
	}
	buy := testOrder(entities.OrderTypeBuyLBC, baseTime.Add(10*time.Minute))
	require.NoError(t, repo.InsertOrder(ctx, buy))

	limited, err := repo.FindOrders(ctx, entities.OrderFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, buy.ID, limited[0].ID)
	assert.Equal(t, ids[4], limited[1].ID)

	byUSDC, err := repo.FindOrders(ctx, entities.OrderFilter{Address: testUSDCAddress})
	require.NoError(t, err)
	assert.Len(t, byUSDC, 5)

	byLBC, err := repo.FindOrders(ctx, entities.OrderFilter{Address: testLBCAddress, Status: entities.OrderStatusPending})
	require.NoError(t, err)
	require.Len(t, byLBC, 1)
	assert.Equal(t, buy.ID, byLBC[0].ID)

	filled, err := repo.FindOrders(ctx, entities.OrderFilter{Status: entities.OrderStatusFilled})
	require.NoError(t, err)
	assert.Empty(t, filled)
}

func TestOrdersRepositoryUpdateOrderStatus(t *testing.T) {
	ctx, repo, _ := newPostgresRepository(t)

	order := testOrder(entities.OrderTypeSellLBC, baseTime)
	require.NoError(t, repo.InsertOrder(ctx, order))

	// Concurrent settlement attempts: exactly one wins
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for _, next := range []entities.OrderStatus{entities.OrderStatusFilled, entities.OrderStatusCancelled, entities.OrderStatusFilled} {
		wg.Add(1)
		go func(next entities.OrderStatus) {
			defer wg.Done()
			_, err := repo.UpdateOrderStatus(ctx, order.ID, entities.OrderStatusPending, next)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, ErrStatusChanged) {
				conflicts++
			}
		}(next)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, conflicts)

	found, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, found.Status.IsTerminal())
	assert.True(t, order.Quantity.Equal(found.Quantity))

	_, err = repo.UpdateOrderStatus(ctx, uuid.NewString(), entities.OrderStatusPending, entities.OrderStatusFilled)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrdersRepositoryFindExpiredPendingOrders(t *testing.T) {
	ctx, repo, _ := newPostgresRepository(t)

	expired := testOrder(entities.OrderTypeBuyLBC, baseTime)
	fresh := testOrder(entities.OrderTypeBuyLBC, baseTime.Add(time.Hour))
	require.NoError(t, repo.InsertOrder(ctx, expired))
	require.NoError(t, repo.InsertOrder(ctx, fresh))

	orders, err := repo.FindExpiredPendingOrders(ctx, baseTime.Add(45*time.Minute))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, expired.ID, orders[0].ID)
}
