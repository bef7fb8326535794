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
	"strings"

	"coin-ledger-go/internal/api"
	"coin-ledger-go/internal/common"
	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"

	"go.uber.org/zap"
)

type tradeRequest struct {
	email    string
	side     ledger.Side
	coin     string
	quantity string
	price    string
}

func parseAndValidateFlags() (*tradeRequest, error) {
	emailFlag := flag.String("email", "", "User email (required)")
	sideFlag := flag.String("side", "", "buy or sell (required)")
	coinFlag := flag.String("coin", "", "Coin id or watchlist symbol, e.g. bitcoin or BTC (required)")
	quantityFlag := flag.String("quantity", "", "Number of coins (required)")
	priceFlag := flag.String("price", "", "Unit price; defaults to the current market price")
	flag.Parse()

	if *emailFlag == "" || *sideFlag == "" || *coinFlag == "" || *quantityFlag == "" {
		return nil, fmt.Errorf("required flags: --email, --side, --coin, --quantity")
	}

	side := ledger.Side(strings.ToLower(*sideFlag))
	if side != ledger.SideBuy && side != ledger.SideSell {
		return nil, fmt.Errorf("invalid side %q: must be buy or sell", *sideFlag)
	}

	return &tradeRequest{
		email:    *emailFlag,
		side:     side,
		coin:     *coinFlag,
		quantity: *quantityFlag,
		price:    *priceFlag,
	}, nil
}

func resolveCoin(watchlistFile, key string) api.TradeParams {
	params := api.TradeParams{CoinId: key}
	coins, err := common.LoadWatchlist(watchlistFile)
	if err != nil {
		zap.L().Debug("Watchlist unavailable, using coin id as given", zap.Error(err))
		return params
	}
	if coin, ok := common.FindWatchedCoin(coins, key); ok {
		params.CoinId = coin.Id
		params.Symbol = coin.Symbol
		params.Name = coin.Name
	}
	return params
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		logger.Fatal("Invalid arguments", zap.Error(err))
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

	users, err := common.InitializeUsers(ctx, services.Store, req.email, logger)
	if err != nil {
		logger.Fatal("Failed to find user", zap.Error(err))
	}
	user := users[0]

	params := resolveCoin(cfg.Watchlist, req.coin)
	params.Quantity = req.quantity
	params.Price = req.price

	var result *models.TradeResult
	if req.side == ledger.SideBuy {
		result, err = services.Ledger.Buy(ctx, user.Id, params)
	} else {
		result, err = services.Ledger.Sell(ctx, user.Id, params)
	}
	if err != nil {
		logger.Fatal("Trade failed", zap.Error(err))
	}

	common.NewReport(os.Stdout).Trade(user, result)
	if !result.Success {
		os.Exit(1)
	}
}
