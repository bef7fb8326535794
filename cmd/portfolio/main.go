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
	"fmt"
	"os"

	"coin-ledger-go/internal/api"
	"coin-ledger-go/internal/common"
	"coin-ledger-go/internal/config"

	"go.uber.org/zap"
)

type portfolioStats struct {
	totalUsers        int
	totalHoldings     int
	usersWithHoldings int
}

func processUser(ctx context.Context, report *common.Report, user common.UserInfo, ledgerService *api.LedgerService, watched map[string]bool) (int, error) {
	view, err := ledgerService.GetPortfolio(ctx, user.Id, "")
	if err != nil {
		return 0, fmt.Errorf("failed to get portfolio: %w", err)
	}

	report.UserBlock(user, view)
	for i, holding := range view.Holdings {
		report.Holding(holding, watched[holding.CoinId], i == len(view.Holdings)-1)
	}

	return len(view.Holdings), nil
}

func processUsersAndGenerateReport(ctx context.Context, report *common.Report, users []common.UserInfo, ledgerService *api.LedgerService, watched map[string]bool, logger *zap.Logger) portfolioStats {
	stats := portfolioStats{}

	for _, user := range users {
		stats.totalUsers++

		holdingCount, err := processUser(ctx, report, user, ledgerService, watched)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}

		if holdingCount > 0 {
			stats.usersWithHoldings++
			stats.totalHoldings += holdingCount
		}
	}

	return stats
}

func loadWatched(file string, logger *zap.Logger) map[string]bool {
	watched := map[string]bool{}
	coins, err := common.LoadWatchlist(file)
	if err != nil {
		logger.Warn("Watchlist not loaded, no coins highlighted", zap.Error(err))
		return watched
	}
	for _, coin := range coins {
		watched[coin.Id] = true
	}
	return watched
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	logger.Info("Starting portfolio report")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Initialize users based on filter
	users, err := common.InitializeUsers(ctx, services.Store, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	watched := loadWatched(cfg.Watchlist, logger)

	report := common.NewReport(os.Stdout)
	report.Header("USER PORTFOLIO REPORT")

	stats := processUsersAndGenerateReport(ctx, report, users, services.Ledger, watched, logger)

	// Print footer summary
	summary := fmt.Sprintf("SUMMARY: %d users holding coins (%d positions across %d users queried, * = watchlist)",
		stats.usersWithHoldings, stats.totalHoldings, stats.totalUsers)
	report.Footer(summary)

	logger.Info("Portfolio report completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_holdings", stats.usersWithHoldings),
		zap.Int("total_holdings", stats.totalHoldings))
}
