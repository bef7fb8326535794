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

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, photo, currency, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at, id`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, photo, currency) VALUES (?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, photo, currency, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, photo, currency, created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER(?) AND active = 1`

	queryUpdateProfile = `
		UPDATE users
		SET name = COALESCE(NULLIF(?, ''), name),
		    email = COALESCE(NULLIF(?, ''), email),
		    photo = COALESCE(NULLIF(?, ''), photo),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = 1`

	// Ledger account queries
	queryInsertLedgerAccount = `
		INSERT OR IGNORE INTO ledger_accounts (user_id, balance, spending, sale, profit, coins_count)
		VALUES (?, '0', '0', '0', '0', 0)`

	queryGetLedgerAccount = `
		SELECT balance, spending, sale, profit, coins_count
		FROM ledger_accounts
		WHERE user_id = ?`

	queryUpdateLedgerAccount = `
		UPDATE ledger_accounts
		SET balance = ?, spending = ?, sale = ?, profit = ?, coins_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`

	// Position queries
	queryGetPositions = `
		SELECT coin_id, amount, avg_price, symbol, name
		FROM positions
		WHERE user_id = ?
		ORDER BY coin_id`

	queryDeletePositions = `
		DELETE FROM positions WHERE user_id = ?`

	queryInsertPosition = `
		INSERT INTO positions (user_id, coin_id, amount, avg_price, symbol, name)
		VALUES (?, ?, ?, ?, ?, ?)`
)
