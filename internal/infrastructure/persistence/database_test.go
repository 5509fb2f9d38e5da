package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/erp/tradedesk/internal/infrastructure/config"
	"github.com/erp/tradedesk/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()
	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
}

func TestNewDatabase_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "desk.db"),
	}
	db, err := NewDatabase(cfg, zap.NewNop(), gormlogger.Silent)
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.DB.Migrator().HasTable("stock_batches"))
	assert.True(t, db.DB.Migrator().HasTable("order_line_allocations"))

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestNewDatabase_WithTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "desk.db"),
	}
	db, err := NewDatabase(cfg, zap.NewNop(), gormlogger.Silent, WithTracing(telemetry.DBTracingConfig{
		Enabled:        true,
		DBName:         "tradedesk",
		TracerProvider: tp,
	}))
	require.NoError(t, err)
	defer db.Close()

	recorder.Reset()
	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /batches")
	_, err = NewGormStockBatchRepository(db.DB).FindAvailable(ctx, inventory.BatchQuery{
		Pool:        inventory.NewPoolKey(uuid.New(), false, nil),
		WarehouseID: uuid.New(),
	})
	require.NoError(t, err)
	span.End()

	var children int
	for _, s := range recorder.Ended() {
		if s.Parent().SpanID() == span.SpanContext().SpanID() {
			children++
		}
	}
	assert.Equal(t, 1, children)
}

func TestGormStockBatchRepository_FindAvailableSQL(t *testing.T) {
	warehouseID := uuid.New()
	productID := uuid.New()
	specID := uuid.New()
	columns := []string{"id", "batch_no", "product_id", "spec_id", "warehouse_id", "received_at",
		"initial_quantity", "available_quantity", "cost_price", "status", "created_at", "updated_at"}

	t.Run("pool keyed by spec filters on spec", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT * FROM "stock_batches" WHERE (warehouse_id = $1 AND product_id = $2) AND (status = $3 AND available_quantity > 0) AND spec_id = $4 ORDER BY received_at ASC, batch_no ASC`)).
			WithArgs(warehouseID, productID, inventory.BatchStatusActive, specID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				uuid.NewString(), "B-1", productID.String(), specID.String(), warehouseID.String(), time.Now(),
				"100", "40", "12.5", "active", time.Now(), time.Now()))

		repo := NewGormStockBatchRepository(db.DB)
		batches, err := repo.FindAvailable(context.Background(), inventory.BatchQuery{
			Pool:        inventory.NewPoolKey(productID, true, &specID),
			WarehouseID: warehouseID,
		})
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "B-1", batches[0].BatchNo)
		assert.Equal(t, "40", batches[0].AvailableQuantity.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pool keyed by product ignores spec", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT * FROM "stock_batches" WHERE (warehouse_id = $1 AND product_id = $2) AND (status = $3 AND available_quantity > 0) ORDER BY received_at ASC, batch_no ASC`)).
			WithArgs(warehouseID, productID, inventory.BatchStatusActive).
			WillReturnRows(sqlmock.NewRows(columns))

		repo := NewGormStockBatchRepository(db.DB)
		batches, err := repo.FindAvailable(context.Background(), inventory.BatchQuery{
			Pool:        inventory.NewPoolKey(productID, false, &specID),
			WarehouseID: warehouseID,
		})
		require.NoError(t, err)
		assert.Empty(t, batches)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
