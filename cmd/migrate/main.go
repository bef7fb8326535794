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
	"flag"

	"coin-ledger-go/internal/common"
	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/postgres"

	"go.uber.org/zap"
)

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	directionFlag := flag.String("direction", "up", "up or down (down drops the schema)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Postgres.URL == "" {
		logger.Fatal("POSTGRES_URL is required")
	}

	migrator, err := postgres.NewMigrator(cfg.Postgres.URL, cfg.Postgres.Schema)
	if err != nil {
		logger.Fatal("Invalid migration settings", zap.Error(err))
	}

	switch *directionFlag {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	default:
		logger.Fatal("Invalid direction, must be up or down", zap.String("direction", *directionFlag))
	}
	if err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	logger.Info("Migration completed",
		zap.String("direction", *directionFlag),
		zap.String("schema", cfg.Postgres.Schema))
}
