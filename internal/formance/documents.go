package formance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// Metadata keys of a users:{id} account.
const (
	keyEntityType = "entity_type"
	keyActive     = "active"
	keyName       = "name"
	keyEmail      = "email"
	keyEmailKey   = "email_key"
	keyPhoto      = "photo"
	keyCurrency   = "currency"
	keyCreatedAt  = "created_at"
	keyUpdatedAt  = "updated_at"

	keyBalance    = "balance"
	keySpending   = "spending"
	keySale       = "sale"
	keyProfit     = "profit"
	keyCoinsCount = "coins_count"
	keyPortfolio  = "portfolio"

	entityEndUser = "end_user"
)

// isUser reports whether acct is a top-level users:{id} account carrying a
// profile.
func isUser(acct *account) bool {
	if acct == nil || acct.Metadata[keyEmail] == "" {
		return false
	}
	id, ok := strings.CutPrefix(acct.Address, userPrefix)
	return ok && id != "" && !strings.Contains(id, ":")
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// profileMetadata holds the non-empty profile fields.
func profileMetadata(name, email, photo string) map[string]string {
	metadata := make(map[string]string)
	if name != "" {
		metadata[keyName] = name
	}
	if email != "" {
		metadata[keyEmail] = email
		metadata[keyEmailKey] = emailKey(email)
	}
	if photo != "" {
		metadata[keyPhoto] = photo
	}
	return metadata
}

func ledgerMetadata(s ledger.Snapshot) map[string]string {
	portfolio, _ := json.Marshal(s.Portfolio)
	return map[string]string{
		keyBalance:    s.Balance.String(),
		keySpending:   s.Spending.String(),
		keySale:       s.Sale.String(),
		keyProfit:     s.Profit.String(),
		keyCoinsCount: strconv.Itoa(len(s.Portfolio)),
		keyPortfolio:  string(portfolio),
	}
}

func userOf(acct *account) models.User {
	meta := acct.Metadata
	createdAt := parseTime(meta[keyCreatedAt])
	updatedAt := parseTime(meta[keyUpdatedAt])
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	currency := meta[keyCurrency]
	if currency == "" {
		currency = defaultCurrency
	}
	return models.User{
		Id:        strings.TrimPrefix(acct.Address, userPrefix),
		Name:      meta[keyName],
		Email:     meta[keyEmail],
		Photo:     meta[keyPhoto],
		Currency:  currency,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func documentOf(acct *account) (*models.UserDocument, error) {
	snapshot, err := snapshotOf(acct.Metadata)
	if err != nil {
		return nil, err
	}
	return &models.UserDocument{User: userOf(acct), Ledger: snapshot}, nil
}

// snapshotOf decodes the ledger metadata. Missing ledger keys read as a
// freshly opened account.
func snapshotOf(meta map[string]string) (ledger.Snapshot, error) {
	snapshot := ledger.NewSnapshot()

	fields := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{keyBalance, &snapshot.Balance},
		{keySpending, &snapshot.Spending},
		{keySale, &snapshot.Sale},
		{keyProfit, &snapshot.Profit},
	}
	for _, f := range fields {
		value, ok := meta[f.name]
		if !ok || value == "" {
			continue
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: failed to parse %s '%s': %v", store.ErrCorruptDocument, f.name, value, err)
		}
		*f.dst = d
	}

	if raw := meta[keyPortfolio]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &snapshot.Portfolio); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: failed to parse portfolio: %v", store.ErrCorruptDocument, err)
		}
	}
	if snapshot.Portfolio == nil {
		snapshot.Portfolio = map[string]ledger.Position{}
	}
	snapshot.CoinsCount = len(snapshot.Portfolio)

	if err := snapshot.Validate(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("%w: %v", store.ErrCorruptDocument, err)
	}
	return snapshot, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
