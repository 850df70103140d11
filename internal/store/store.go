package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/vaidashi/courier-ledger/internal/config"
	"github.com/vaidashi/courier-ledger/internal/models"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

// Store is the persistence adapter for the in-memory core. It is strictly a
// sync layer: loads funnel through the ledger's SetAll, saves read
// snapshots, and nothing here participates in core operations.
type Store struct {
	db     *sqlx.DB
	logger logger.Logger
}

// New opens a connection to the snapshot database.
func New(cfg *config.Config, log logger.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Info("Connected to snapshot database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Store{
		db:     db,
		logger: log,
	}, nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations bootstraps the snapshot schema.
func (s *Store) RunMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(50) PRIMARY KEY,
		order_number BIGINT NOT NULL,
		source VARCHAR(50),
		status VARCHAR(30) NOT NULL,
		previous_status VARCHAR(30),
		merchant VARCHAR(100) NOT NULL,
		driver VARCHAR(100),
		recipient VARCHAR(100) NOT NULL,
		phone VARCHAR(30),
		address TEXT,
		region VARCHAR(100),
		city VARCHAR(100),
		cod DECIMAL(12, 2) NOT NULL DEFAULT 0,
		item_price DECIMAL(12, 2) NOT NULL DEFAULT 0,
		delivery_fee DECIMAL(12, 2) NOT NULL DEFAULT 0,
		additional_cost DECIMAL(12, 2) NOT NULL DEFAULT 0,
		driver_fee DECIMAL(12, 2) NOT NULL DEFAULT 0,
		driver_additional_fare DECIMAL(12, 2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_driver ON orders(driver);
	CREATE INDEX IF NOT EXISTS idx_orders_merchant ON orders(merchant);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS collection_slips (
		id VARCHAR(50) PRIMARY KEY,
		driver_name VARCHAR(100) NOT NULL,
		date VARCHAR(20) NOT NULL,
		item_count INT NOT NULL,
		total_cod DECIMAL(12, 2) NOT NULL,
		total_driver_fare DECIMAL(12, 2) NOT NULL,
		net_payable DECIMAL(12, 2) NOT NULL,
		orders JSONB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS driver_return_slips (
		id VARCHAR(50) PRIMARY KEY,
		driver_name VARCHAR(100) NOT NULL,
		date VARCHAR(20) NOT NULL,
		item_count INT NOT NULL,
		orders JSONB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS merchant_slips (
		id VARCHAR(50) PRIMARY KEY,
		merchant VARCHAR(100) NOT NULL,
		date VARCHAR(20) NOT NULL,
		item_count INT NOT NULL,
		status VARCHAR(30) NOT NULL,
		orders JSONB NOT NULL
	);
	`

	_, err := s.db.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.logger.Info("Snapshot schema ready")
	return nil
}

// LoadOrders reads the persisted order snapshot, most recent first, for
// feeding into SetAll.
func (s *Store) LoadOrders(ctx context.Context) ([]models.Order, error) {
	query := `
		SELECT id, order_number, source, status, previous_status, merchant,
		       driver, recipient, phone, address, region, city,
		       cod, item_price, delivery_fee, additional_cost,
		       driver_fee, driver_additional_fare, created_at, updated_at
		FROM orders
		ORDER BY order_number DESC
	`

	var orders []models.Order

	if err := s.db.SelectContext(ctx, &orders, query); err != nil {
		s.logger.Error("Failed to load orders", "error", err)
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	return orders, nil
}

// SaveOrders replaces the persisted order snapshot with the given one,
// atomically.
func (s *Store) SaveOrders(ctx context.Context, orders []models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Error("Failed to rollback snapshot transaction", "error", rollbackErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("failed to clear order snapshot: %w", err)
	}

	insert := `
		INSERT INTO orders (id, order_number, source, status, previous_status,
			merchant, driver, recipient, phone, address, region, city,
			cod, item_price, delivery_fee, additional_cost,
			driver_fee, driver_additional_fare, created_at, updated_at)
		VALUES (:id, :order_number, :source, :status, :previous_status,
			:merchant, :driver, :recipient, :phone, :address, :region, :city,
			:cod, :item_price, :delivery_fee, :additional_cost,
			:driver_fee, :driver_additional_fare, :created_at, :updated_at)
	`

	for i := range orders {
		if _, err = tx.NamedExecContext(ctx, insert, &orders[i]); err != nil {
			return fmt.Errorf("failed to save order %s: %w", orders[i].ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order snapshot: %w", err)
	}

	s.logger.Info("Order snapshot saved", "count", len(orders))
	return nil
}

// SaveCollectionSlip appends a collection slip. Slips are append-only.
func (s *Store) SaveCollectionSlip(ctx context.Context, slip models.CollectionSlip) error {
	payload, err := json.Marshal(slip.Orders)

	if err != nil {
		return fmt.Errorf("failed to marshal slip orders: %w", err)
	}

	query := `
		INSERT INTO collection_slips
			(id, driver_name, date, item_count, total_cod, total_driver_fare, net_payable, orders)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = s.db.ExecContext(ctx, query,
		slip.ID, slip.DriverName, slip.Date, slip.ItemCount,
		slip.TotalCOD, slip.TotalDriverFare, slip.NetPayable, payload)

	if err != nil {
		s.logger.Error("Failed to save collection slip", "error", err, "slip_id", slip.ID)
		return fmt.Errorf("failed to save collection slip: %w", err)
	}

	return nil
}

// SaveDriverReturnSlip appends a driver return slip.
func (s *Store) SaveDriverReturnSlip(ctx context.Context, slip models.DriverReturnSlip) error {
	payload, err := json.Marshal(slip.Orders)

	if err != nil {
		return fmt.Errorf("failed to marshal slip orders: %w", err)
	}

	query := `
		INSERT INTO driver_return_slips (id, driver_name, date, item_count, orders)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = s.db.ExecContext(ctx, query,
		slip.ID, slip.DriverName, slip.Date, slip.ItemCount, payload)

	if err != nil {
		s.logger.Error("Failed to save driver return slip", "error", err, "slip_id", slip.ID)
		return fmt.Errorf("failed to save driver return slip: %w", err)
	}

	return nil
}

// SaveMerchantSlip inserts or updates a merchant slip. The status column is
// the one mutable slip field, so conflicts update it.
func (s *Store) SaveMerchantSlip(ctx context.Context, slip models.MerchantSlip) error {
	payload, err := json.Marshal(slip.Orders)

	if err != nil {
		return fmt.Errorf("failed to marshal slip orders: %w", err)
	}

	query := `
		INSERT INTO merchant_slips (id, merchant, date, item_count, status, orders)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	`

	_, err = s.db.ExecContext(ctx, query,
		slip.ID, slip.Merchant, slip.Date, slip.ItemCount, slip.Status, payload)

	if err != nil {
		s.logger.Error("Failed to save merchant slip", "error", err, "slip_id", slip.ID)
		return fmt.Errorf("failed to save merchant slip: %w", err)
	}

	return nil
}

// LoadMerchantSlips reads all persisted merchant slips for restoring the
// returns engine on startup.
func (s *Store) LoadMerchantSlips(ctx context.Context) ([]models.MerchantSlip, error) {
	query := `SELECT id, merchant, date, item_count, status, orders FROM merchant_slips ORDER BY id`

	rows, err := s.db.QueryxContext(ctx, query)

	if err != nil {
		s.logger.Error("Failed to load merchant slips", "error", err)
		return nil, fmt.Errorf("failed to load merchant slips: %w", err)
	}
	defer rows.Close()

	var slips []models.MerchantSlip

	for rows.Next() {
		var (
			slip    models.MerchantSlip
			payload []byte
		)

		if err := rows.Scan(&slip.ID, &slip.Merchant, &slip.Date, &slip.ItemCount, &slip.Status, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan merchant slip: %w", err)
		}

		if err := json.Unmarshal(payload, &slip.Orders); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slip orders: %w", err)
		}

		slips = append(slips, slip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read merchant slips: %w", err)
	}

	return slips, nil
}
