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
	"errors"
	"flag"
	"fmt"
	"os"

	"coin-ledger-go/internal/api"
	"coin-ledger-go/internal/common"
	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	nameFlag := flag.String("name", "", "User's full name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	currencyFlag := flag.String("currency", "", "Ledger currency, e.g. usd or eur (optional)")
	depositFlag := flag.String("deposit", "", "Opening cash deposit (optional)")
	flag.Parse()

	// Validate required flags
	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --email")
	}

	// Validate name
	if err := api.ValidateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}

	// Validate email
	if err := api.ValidateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}

	zap.L().Info("Starting user creation process",
		zap.String("name", *nameFlag),
		zap.String("email", *emailFlag))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.Ledger.Register(ctx, api.RegisterParams{
		Name:     *nameFlag,
		Email:    *emailFlag,
		Currency: *currencyFlag,
	})
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			zap.L().Fatal("User already exists with this email", zap.String("email", *emailFlag))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	report := common.NewReport(os.Stdout)
	report.Header("USER CREATED")
	report.Field("ID", user.Id)
	report.Field("Name", user.Name)
	report.Field("Email", user.Email)
	report.Field("Currency", user.Currency)

	if *depositFlag != "" {
		result, err := services.Ledger.Deposit(ctx, user.Id, *depositFlag)
		if err != nil {
			zap.L().Fatal("Failed to deposit opening balance", zap.Error(err))
		}
		if result.Success {
			report.Field("Balance", result.NewBalance.String())
		} else {
			report.Field("Deposit", "rejected: "+result.Error)
		}
	}
	report.Rule("=")
	fmt.Println()

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}
