/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SubledgerService owns the ledger half of a user document: the cash and
// running totals in ledger_accounts and the holdings in positions.
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Ledger Accounts Table (cash and running totals, one row per user)
	CREATE TABLE IF NOT EXISTS ledger_accounts (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		balance TEXT NOT NULL DEFAULT '0',
		spending TEXT NOT NULL DEFAULT '0',
		sale TEXT NOT NULL DEFAULT '0',
		profit TEXT NOT NULL DEFAULT '0',
		coins_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Positions Table (portfolio, one row per held coin)
	CREATE TABLE IF NOT EXISTS positions (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		coin_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		avg_price TEXT NOT NULL,
		symbol TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, coin_id)
	);

	CREATE INDEX IF NOT EXISTS idx_positions_coin_id ON positions(coin_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// OpenAccount creates the zero ledger row for a new user inside tx.
func (s *SubledgerService) OpenAccount(ctx context.Context, tx *sql.Tx, userId string) error {
	if _, err := tx.ExecContext(ctx, queryInsertLedgerAccount, userId); err != nil {
		return fmt.Errorf("failed to open ledger account: %w", err)
	}
	return nil
}

// Load reads the snapshot of userId. A user without a ledger row yields
// store.ErrUserNotFound.
func (s *SubledgerService) Load(ctx context.Context, userId string) (ledger.Snapshot, error) {
	zap.L().Debug("Loading ledger snapshot", zap.String("user_id", userId))

	// Read the account row and the positions from one consistent view
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balanceStr, spendingStr, saleStr, profitStr string
	var coinsCount int
	err = tx.QueryRowContext(ctx, queryGetLedgerAccount, userId).Scan(&balanceStr, &spendingStr, &saleStr, &profitStr, &coinsCount)
	if err == sql.ErrNoRows {
		return ledger.Snapshot{}, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		zap.L().Error("Failed to get ledger account", zap.String("user_id", userId), zap.Error(err))
		return ledger.Snapshot{}, fmt.Errorf("failed to get ledger account: %w", err)
	}

	snapshot := ledger.NewSnapshot()
	snapshot.CoinsCount = coinsCount
	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"balance", balanceStr, &snapshot.Balance},
		{"spending", spendingStr, &snapshot.Spending},
		{"sale", saleStr, &snapshot.Sale},
		{"profit", profitStr, &snapshot.Profit},
	}
	for _, f := range fields {
		*f.dst, err = decimal.NewFromString(f.value)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: failed to parse %s '%s': %v", store.ErrCorruptDocument, f.name, f.value, err)
		}
	}

	rows, err := tx.QueryContext(ctx, queryGetPositions, userId)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to get positions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var coinId, amountStr, avgPriceStr string
		var position ledger.Position
		if err := rows.Scan(&coinId, &amountStr, &avgPriceStr, &position.Symbol, &position.Name); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("failed to scan position: %w", err)
		}

		position.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: failed to parse amount '%s': %v", store.ErrCorruptDocument, amountStr, err)
		}
		position.AvgPrice, err = decimal.NewFromString(avgPriceStr)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: failed to parse avg_price '%s': %v", store.ErrCorruptDocument, avgPriceStr, err)
		}

		snapshot.Portfolio[coinId] = position
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during position row iteration", zap.Error(err))
		return ledger.Snapshot{}, fmt.Errorf("error iterating position rows: %w", err)
	}

	if err := snapshot.Validate(); err != nil {
		zap.L().Error("Stored ledger snapshot violates invariants", zap.String("user_id", userId), zap.Error(err))
		return ledger.Snapshot{}, fmt.Errorf("%w: %v", store.ErrCorruptDocument, err)
	}

	zap.L().Debug("Loaded ledger snapshot",
		zap.String("user_id", userId),
		zap.String("balance", snapshot.Balance.String()),
		zap.Int("coins_count", snapshot.CoinsCount))
	return snapshot, nil
}

// Save atomically replaces the ledger fields of userId. Profile columns live
// in the users table and are never touched here.
func (s *SubledgerService) Save(ctx context.Context, userId string, fields store.LedgerFields) error {
	snapshot := fields.Snapshot
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("%w: refusing to save: %v", store.ErrCorruptDocument, err)
	}

	zap.L().Info("Saving ledger snapshot",
		zap.String("user_id", userId),
		zap.String("balance", snapshot.Balance.String()),
		zap.Int("coins_count", snapshot.CoinsCount))

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, queryUpdateLedgerAccount,
		snapshot.Balance.String(), snapshot.Spending.String(), snapshot.Sale.String(), snapshot.Profit.String(),
		snapshot.CoinsCount, userId)
	if err != nil {
		return fmt.Errorf("failed to update ledger account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	if _, err := tx.ExecContext(ctx, queryDeletePositions, userId); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	coinIds := make([]string, 0, len(snapshot.Portfolio))
	for coinId := range snapshot.Portfolio {
		coinIds = append(coinIds, coinId)
	}
	sort.Strings(coinIds)

	for _, coinId := range coinIds {
		p := snapshot.Portfolio[coinId]
		if _, err := tx.ExecContext(ctx, queryInsertPosition,
			userId, coinId, p.Amount.String(), p.AvgPrice.String(), p.Symbol, p.Name); err != nil {
			return fmt.Errorf("failed to insert position %s: %w", coinId, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Debug("Ledger snapshot saved", zap.String("user_id", userId))
	return nil
}
