package postgres

const (
	queryGetActiveUsers = `
		SELECT id, name, email, photo, currency, created_at, updated_at
		FROM users
		WHERE active
		ORDER BY created_at, id`

	queryInsertUser = `
		INSERT INTO users (id, name, email, photo, currency) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	queryGetUserById = `
		SELECT id, name, email, photo, currency, created_at, updated_at
		FROM users
		WHERE id = $1 AND active`

	queryGetUserByEmail = `
		SELECT id, name, email, photo, currency, created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1) AND active`

	queryUpdateProfile = `
		UPDATE users
		SET name = COALESCE(NULLIF($1, ''), name),
		    email = COALESCE(NULLIF($2, ''), email),
		    photo = COALESCE(NULLIF($3, ''), photo),
		    updated_at = NOW()
		WHERE id = $4 AND active`

	queryInsertLedgerAccount = `
		INSERT INTO ledger_accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	queryGetLedgerAccount = `
		SELECT balance::text, spending::text, sale::text, profit::text, coins_count
		FROM ledger_accounts
		WHERE user_id = $1`

	queryUpdateLedgerAccount = `
		UPDATE ledger_accounts
		SET balance = $1::text::numeric,
		    spending = $2::text::numeric,
		    sale = $3::text::numeric,
		    profit = $4::text::numeric,
		    coins_count = $5,
		    updated_at = NOW()
		WHERE user_id = $6`

	queryGetPositions = `
		SELECT coin_id, amount::text, avg_price::text, symbol, name
		FROM positions
		WHERE user_id = $1
		ORDER BY coin_id`

	queryDeletePositions = `
		DELETE FROM positions WHERE user_id = $1`

	queryInsertPosition = `
		INSERT INTO positions (user_id, coin_id, amount, avg_price, symbol, name)
		VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5, $6)`
)
