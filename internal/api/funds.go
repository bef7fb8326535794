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

package api

import (
	"context"
	"fmt"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deposit adds cash entered as text (e.g. "250.50") to the user's balance
func (s *LedgerService) Deposit(ctx context.Context, userId, amount string) (*models.FundsResult, error) {
	return s.moveFunds(ctx, userId, amount, "deposit", ledger.Deposit)
}

// Withdraw removes cash from the user's balance
func (s *LedgerService) Withdraw(ctx context.Context, userId, amount string) (*models.FundsResult, error) {
	return s.moveFunds(ctx, userId, amount, "withdraw", ledger.Withdraw)
}

type fundsOperation func(ledger.Snapshot, decimal.Decimal) (ledger.Snapshot, error)

func (s *LedgerService) moveFunds(ctx context.Context, userId, input, action string, apply fundsOperation) (*models.FundsResult, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}

	zap.L().Info("Processing funds request",
		zap.String("user_id", userId),
		zap.String("action", action),
		zap.String("amount", input))

	amount, err := ledger.ParseAmount(input)
	if err != nil {
		return rejectedFunds(err), nil
	}

	snapshot, err := s.store.Load(ctx, userId)
	if err != nil {
		return nil, err
	}

	next, err := apply(snapshot, amount)
	if err != nil {
		if ledger.KindOf(err) == "" {
			return nil, err
		}
		zap.L().Info("Funds request rejected",
			zap.String("user_id", userId),
			zap.String("action", action),
			zap.String("reason", string(ledger.KindOf(err))))
		result := rejectedFunds(err)
		result.NewBalance = snapshot.Balance
		return result, nil
	}

	if err := s.store.Save(ctx, userId, store.NewLedgerFields(next)); err != nil {
		zap.L().Error("Failed to save funds movement",
			zap.String("user_id", userId),
			zap.String("action", action),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save %s: %w", action, err)
	}

	zap.L().Info("Funds request processed",
		zap.String("user_id", userId),
		zap.String("action", action),
		zap.String("amount", amount.String()),
		zap.String("new_balance", next.Balance.String()))

	return &models.FundsResult{
		Success:    true,
		Amount:     amount,
		NewBalance: next.Balance,
	}, nil
}

func rejectedFunds(err error) *models.FundsResult {
	return &models.FundsResult{
		Success:    false,
		Amount:     decimal.Zero,
		NewBalance: decimal.Zero,
		Reason:     string(ledger.KindOf(err)),
		Error:      err.Error(),
	}
}
