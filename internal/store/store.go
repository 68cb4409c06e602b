package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/pkg/model"
)

// Store defines the contract for persisting quote records and resolving
// webhook entity mappings.
type Store interface {
	CreateQuoteRecord(ctx context.Context, rec *model.QuoteRecord, maxAttempts int) SaveResult
	ResolveProductSlug(ctx context.Context, remoteID int) (string, error)
	Ping(ctx context.Context) error
	Close()
}

// SaveResult is the outcome of a quote record write. The writer never
// returns a raw error past its boundary; callers branch on Saved.
type SaveResult struct {
	Saved    bool
	Conflict bool
	Attempts int
	Err      error
}

// failureClass buckets insert errors for the retry policy.
type failureClass int

const (
	classOther failureClass = iota
	classConflict
	classConnection
	classMisconfigured
)

const probeTimeout = 5 * time.Second
const connectionRetryDelay = 1 * time.Second

// db is the subset of pgxpool.Pool the store uses.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PGStore persists quote records to Postgres.
type PGStore struct {
	pool   *pgxpool.Pool
	db     db
	logger *zap.Logger
	sleep  func(time.Duration)
}

// PGPoolConfig tunes the connection pool.
type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// New connects a PGStore.
func New(ctx context.Context, pgURL string, poolCfg PGPoolConfig, logger *zap.Logger) (*PGStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		return nil, fmt.Errorf("invalid pg config: %w", err)
	}
	if poolCfg.MaxConns > 0 {
		cfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		cfg.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = poolCfg.MaxConnLifetime
	}
	if poolCfg.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}
	if poolCfg.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = poolCfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PGStore{pool: pool, db: pool, logger: logger, sleep: time.Sleep}, nil
}

// CreateQuoteRecord inserts the durable quote record with classified retry.
// A uniqueness conflict on the order id aborts immediately: the record
// already exists and retrying cannot succeed. Connection-class failures are
// retried after a short pause up to maxAttempts.
func (s *PGStore) CreateQuoteRecord(ctx context.Context, rec *model.QuoteRecord, maxAttempts int) SaveResult {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.probe(ctx); err != nil {
			lastErr = fmt.Errorf("connectivity probe: %w", err)
			s.logger.Warn("store.quote.probe_failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < maxAttempts {
				s.sleep(connectionRetryDelay)
			}
			continue
		}

		err := s.insertQuoteRecord(ctx, rec)
		if err == nil {
			s.logger.Info("store.quote.saved",
				zap.String("quote_id", rec.ID.String()),
				zap.Int("order_id", rec.OrderID),
				zap.Int("attempt", attempt))
			return SaveResult{Saved: true, Attempts: attempt}
		}

		lastErr = err
		switch classify(err) {
		case classConflict:
			s.logger.Warn("store.quote.duplicate_order",
				zap.Int("order_id", rec.OrderID),
				zap.Error(err))
			return SaveResult{Conflict: true, Attempts: attempt, Err: err}
		case classMisconfigured:
			s.logger.Error("store.quote.table_missing", zap.Error(err))
			return SaveResult{Attempts: attempt, Err: err}
		case classConnection:
			s.logger.Warn("store.quote.connection_failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < maxAttempts {
				s.sleep(connectionRetryDelay)
			}
		default:
			s.logger.Warn("store.quote.insert_failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
	}

	return SaveResult{Attempts: maxAttempts, Err: lastErr}
}

func (s *PGStore) insertQuoteRecord(ctx context.Context, rec *model.QuoteRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO orders.quote_record (
			id, order_id, customer_name, customer_email, customer_phone,
			company, items, total, note, project_type, shipping_region, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`, rec.ID, rec.OrderID, rec.CustomerName, rec.CustomerEmail, rec.CustomerPhone,
		rec.Company, items, rec.Total, rec.Note, rec.ProjectType, rec.ShippingRegion)
	return err
}

// ResolveProductSlug maps a remote product id to the local content slug.
// Returns "" without error when no mapping exists.
func (s *PGStore) ResolveProductSlug(ctx context.Context, remoteID int) (string, error) {
	var slug string
	err := s.db.QueryRow(ctx, `
		SELECT slug FROM catalog.product_map
		WHERE remote_id = $1
		LIMIT 1;
	`, remoteID).Scan(&slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve product slug: %w", err)
	}
	return slug, nil
}

// Ping runs the trivial liveness probe used by /health.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// probe verifies store connectivity before an attempt. A timed-out probe is
// a connection-class failure.
func (s *PGStore) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.db.Ping(probeCtx)
}

func classify(err error) failureClass {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return classConflict
		case pgErr.Code == "42P01":
			return classMisconfigured
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return classConnection
		}
		return classOther
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return classConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return classConnection
	}
	return classOther
}
