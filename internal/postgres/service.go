package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.DocumentStore.
var _ store.DocumentStore = (*Service)(nil)

const (
	defaultCurrency   = "usd"
	uniqueViolation   = "23505"
	defaultSchemaName = "coin_ledger"
	defaultMaxConns   = 10
)

// Service implements store.DocumentStore on PostgreSQL. Decimals travel as
// text and are stored as NUMERIC, so no precision is lost either way.
type Service struct {
	pool *pgxpool.Pool
}

// NewService connects to PostgreSQL and applies pending migrations.
func NewService(ctx context.Context, cfg models.PostgresConfig) (*Service, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres url cannot be empty")
	}
	if cfg.Schema == "" {
		cfg.Schema = defaultSchemaName
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultMaxConns
	}

	migrator, err := NewMigrator(cfg.URL, cfg.Schema)
	if err != nil {
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, err
	}

	dsn, err := withSearchPath(cfg.URL, cfg.Schema)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.ConnConfig.RuntimeParams["search_path"] = cfg.Schema

	zap.L().Info("Connecting to PostgreSQL", zap.String("schema", cfg.Schema), zap.Int32("max_conns", cfg.MaxConns))
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres pool: %w", err)
	}

	service := &Service{pool: pool}
	pingCtx := ctx
	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}
	if err := service.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping postgres: %w", err)
	}

	zap.L().Info("PostgreSQL service initialized successfully")
	return service, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Service) Close() {
	s.pool.Close()
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, queryGetActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, userId string) (*models.UserDocument, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return s.document(ctx, user)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.UserDocument, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, queryGetUserByEmail, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("unable to query user by email: %w", err)
	}
	return s.document(ctx, user)
}

func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.UserDocument, error) {
	if params.Id == "" || strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Email) == "" {
		return nil, fmt.Errorf("%w: id, name and email are required", store.ErrInvalidParameters)
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	zap.L().Info("Creating user", zap.String("id", params.Id), zap.String("email", params.Email))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx, queryInsertUser,
		params.Id, strings.TrimSpace(params.Name), strings.TrimSpace(params.Email), params.Photo, currency)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserExists, params.Email)
		}
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrUserExists, params.Email)
	}

	if _, err := tx.Exec(ctx, queryInsertLedgerAccount, params.Id); err != nil {
		return nil, fmt.Errorf("failed to open ledger account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("User created successfully", zap.String("id", params.Id))
	return s.GetUser(ctx, params.Id)
}

func (s *Service) UpdateProfile(ctx context.Context, userId string, fields store.ProfileFields) error {
	if fields.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", store.ErrInvalidParameters)
	}

	tag, err := s.pool.Exec(ctx, queryUpdateProfile,
		strings.TrimSpace(fields.Name), strings.TrimSpace(fields.Email), fields.Photo, userId)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrUserExists, fields.Email)
		}
		return fmt.Errorf("unable to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	zap.L().Info("Profile updated", zap.String("user_id", userId))
	return nil
}

// Load reads the account row and positions under one repeatable-read
// snapshot.
func (s *Service) Load(ctx context.Context, userId string) (ledger.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	var balance, spending, sale, profit string
	snapshot := ledger.NewSnapshot()
	err = tx.QueryRow(ctx, queryGetLedgerAccount, userId).Scan(&balance, &spending, &sale, &profit, &snapshot.CoinsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Snapshot{}, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to get ledger account: %w", err)
	}

	for _, f := range []struct {
		name, value string
		dst         *decimal.Decimal
	}{
		{"balance", balance, &snapshot.Balance},
		{"spending", spending, &snapshot.Spending},
		{"sale", sale, &snapshot.Sale},
		{"profit", profit, &snapshot.Profit},
	} {
		if *f.dst, err = decimal.NewFromString(f.value); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: failed to parse %s '%s': %v", store.ErrCorruptDocument, f.name, f.value, err)
		}
	}

	rows, err := tx.Query(ctx, queryGetPositions, userId)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var coinId, amount, avgPrice string
		var position ledger.Position
		if err := rows.Scan(&coinId, &amount, &avgPrice, &position.Symbol, &position.Name); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("failed to scan position: %w", err)
		}
		if position.Amount, err = decimal.NewFromString(amount); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: failed to parse amount '%s': %v", store.ErrCorruptDocument, amount, err)
		}
		if position.AvgPrice, err = decimal.NewFromString(avgPrice); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: failed to parse avg_price '%s': %v", store.ErrCorruptDocument, avgPrice, err)
		}
		snapshot.Portfolio[coinId] = position
	}
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("error iterating position rows: %w", err)
	}

	if err := snapshot.Validate(); err != nil {
		zap.L().Error("Stored ledger snapshot violates invariants", zap.String("user_id", userId), zap.Error(err))
		return ledger.Snapshot{}, fmt.Errorf("%w: %v", store.ErrCorruptDocument, err)
	}
	return snapshot, nil
}

// Save replaces the ledger fields of userId in one transaction.
func (s *Service) Save(ctx context.Context, userId string, fields store.LedgerFields) error {
	snapshot := fields.Snapshot
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("%w: refusing to save: %v", store.ErrCorruptDocument, err)
	}

	zap.L().Info("Saving ledger snapshot",
		zap.String("user_id", userId),
		zap.String("balance", snapshot.Balance.String()),
		zap.Int("coins_count", snapshot.CoinsCount))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx, queryUpdateLedgerAccount,
		snapshot.Balance.String(), snapshot.Spending.String(), snapshot.Sale.String(), snapshot.Profit.String(),
		snapshot.CoinsCount, userId)
	if err != nil {
		return fmt.Errorf("failed to update ledger account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	if _, err := tx.Exec(ctx, queryDeletePositions, userId); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	coinIds := make([]string, 0, len(snapshot.Portfolio))
	for coinId := range snapshot.Portfolio {
		coinIds = append(coinIds, coinId)
	}
	sort.Strings(coinIds)

	batch := &pgx.Batch{}
	for _, coinId := range coinIds {
		p := snapshot.Portfolio[coinId]
		batch.Queue(queryInsertPosition, userId, coinId, p.Amount.String(), p.AvgPrice.String(), p.Symbol, p.Name)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert positions: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Service) document(ctx context.Context, user *models.User) (*models.UserDocument, error) {
	snapshot, err := s.Load(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	return &models.UserDocument{User: *user, Ledger: snapshot}, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.Id, &user.Name, &user.Email, &user.Photo, &user.Currency, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		zap.L().Warn("Failed to rollback transaction", zap.Error(err))
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
