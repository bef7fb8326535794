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

package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"coin-ledger-go/internal/common"
	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/models"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "User email (required)")
	actionFlag := flag.String("action", "", "deposit or withdraw (required)")
	amountFlag := flag.String("amount", "", "Cash amount (required)")
	flag.Parse()

	if *emailFlag == "" || *actionFlag == "" || *amountFlag == "" {
		logger.Fatal("All flags are required: --email, --action, --amount")
	}
	action := strings.ToLower(*actionFlag)
	if action != "deposit" && action != "withdraw" {
		logger.Fatal("Invalid action, must be deposit or withdraw", zap.String("action", *actionFlag))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.InitializeUsers(ctx, services.Store, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to find user", zap.Error(err))
	}
	user := users[0]

	var result *models.FundsResult
	if action == "deposit" {
		result, err = services.Ledger.Deposit(ctx, user.Id, *amountFlag)
	} else {
		result, err = services.Ledger.Withdraw(ctx, user.Id, *amountFlag)
	}
	if err != nil {
		logger.Fatal("Funds request failed", zap.Error(err))
	}

	common.NewReport(os.Stdout).Funds(user, action, result)
	if !result.Success {
		os.Exit(1)
	}
}
