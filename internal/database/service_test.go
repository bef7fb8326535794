package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	t.Helper()

	// One connection keeps the in-memory database alive and shared
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func createTestUser(t *testing.T, s *Service, id, email string) *models.UserDocument {
	t.Helper()
	doc, err := s.CreateUser(context.Background(), store.CreateUserParams{
		Id:    id,
		Name:  "Test User",
		Email: email,
	})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return doc
}

func TestNewService_InvalidConfig(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"empty path", models.DatabaseConfig{MaxOpenConns: 1, PingTimeout: time.Second}},
		{"zero open conns", models.DatabaseConfig{Path: ":memory:", PingTimeout: time.Second}},
		{"negative idle conns", models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second}},
		{"zero ping timeout", models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(ctx, tt.cfg); err == nil {
				t.Error("Expected configuration error, got nil")
			}
		})
	}
}

func TestCreateUser_OpensZeroLedger(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	doc := createTestUser(t, service, "user1", "test@example.com")

	if doc.Currency != "usd" {
		t.Errorf("Expected default currency usd, got %s", doc.Currency)
	}
	if !doc.Ledger.Balance.IsZero() {
		t.Errorf("Expected zero balance, got %s", doc.Ledger.Balance)
	}
	if len(doc.Ledger.Portfolio) != 0 || doc.Ledger.CoinsCount != 0 {
		t.Errorf("Expected empty portfolio, got %d positions", len(doc.Ledger.Portfolio))
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1", "test@example.com")

	_, err := service.CreateUser(context.Background(), store.CreateUserParams{
		Id:    "user1",
		Name:  "Someone Else",
		Email: "other@example.com",
	})
	if !errors.Is(err, store.ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}
}

func TestCreateUser_MissingFields(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.CreateUser(context.Background(), store.CreateUserParams{Id: "user1", Email: "a@b.c"})
	if !errors.Is(err, store.ErrInvalidParameters) {
		t.Errorf("Expected ErrInvalidParameters, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.GetUser(ctx, "missing"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound from GetUser, got %v", err)
	}
	if _, err := service.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound from GetUserByEmail, got %v", err)
	}
	if _, err := service.Load(ctx, "missing"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound from Load, got %v", err)
	}
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1", "Test@Example.com")

	doc, err := service.GetUserByEmail(context.Background(), "test@example.COM")
	if err != nil {
		t.Fatalf("Failed to get user by email: %v", err)
	}
	if doc.Id != "user1" {
		t.Errorf("Expected user1, got %s", doc.Id)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1", "test@example.com")

	snapshot, err := ledger.Deposit(ledger.NewSnapshot(), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}
	snapshot, err = ledger.Buy(snapshot, ledger.TradeRequest{
		CoinId:    "bitcoin",
		Symbol:    "btc",
		Name:      "Bitcoin",
		UnitPrice: decimal.RequireFromString("300.125"),
		Quantity:  decimal.RequireFromString("0.5"),
		Side:      ledger.SideBuy,
	})
	if err != nil {
		t.Fatalf("Failed to buy: %v", err)
	}

	if err := service.Save(ctx, "user1", store.NewLedgerFields(snapshot)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := service.Load(ctx, "user1")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if !loaded.Balance.Equal(snapshot.Balance) {
		t.Errorf("Expected balance %s, got %s", snapshot.Balance, loaded.Balance)
	}
	if !loaded.Spending.Equal(snapshot.Spending) {
		t.Errorf("Expected spending %s, got %s", snapshot.Spending, loaded.Spending)
	}
	if loaded.CoinsCount != 1 {
		t.Errorf("Expected 1 coin, got %d", loaded.CoinsCount)
	}
	position, ok := loaded.Portfolio["bitcoin"]
	if !ok {
		t.Fatal("Expected bitcoin position")
	}
	if !position.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Expected amount 0.5, got %s", position.Amount)
	}
	if !position.AvgPrice.Equal(decimal.RequireFromString("300.125")) {
		t.Errorf("Expected avg price 300.125, got %s", position.AvgPrice)
	}
	if position.Symbol != "BTC" || position.Name != "Bitcoin" {
		t.Errorf("Unexpected labels %s/%s", position.Symbol, position.Name)
	}
}

func TestSave_RemovesLiquidatedPositions(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1", "test@example.com")

	snapshot := ledger.NewSnapshot()
	snapshot.Balance = decimal.NewFromInt(10)
	snapshot.Portfolio["eth"] = ledger.Position{Amount: decimal.NewFromInt(1), AvgPrice: decimal.NewFromInt(5)}
	if err := service.Save(ctx, "user1", store.NewLedgerFields(snapshot)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	delete(snapshot.Portfolio, "eth")
	if err := service.Save(ctx, "user1", store.NewLedgerFields(snapshot)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := service.Load(ctx, "user1")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(loaded.Portfolio) != 0 || loaded.CoinsCount != 0 {
		t.Errorf("Expected empty portfolio, got %v", loaded.Portfolio)
	}
}

func TestSave_UnknownUser(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	err := service.Save(context.Background(), "missing", store.NewLedgerFields(ledger.NewSnapshot()))
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestSave_RejectsInvalidSnapshot(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1", "test@example.com")

	snapshot := ledger.NewSnapshot()
	snapshot.Balance = decimal.NewFromInt(-1)
	err := service.Save(context.Background(), "user1", store.NewLedgerFields(snapshot))
	if !errors.Is(err, store.ErrCorruptDocument) {
		t.Errorf("Expected ErrCorruptDocument, got %v", err)
	}
}

func TestSave_LeavesProfileUntouched(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1", "test@example.com")

	snapshot := ledger.NewSnapshot()
	snapshot.Balance = decimal.NewFromInt(42)
	if err := service.Save(ctx, "user1", store.NewLedgerFields(snapshot)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	doc, err := service.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if doc.Name != "Test User" || doc.Email != "test@example.com" {
		t.Errorf("Profile changed by ledger save: %+v", doc.User)
	}
}

func TestUpdateProfile_LeavesLedgerUntouched(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1", "test@example.com")

	snapshot := ledger.NewSnapshot()
	snapshot.Balance = decimal.NewFromInt(42)
	if err := service.Save(ctx, "user1", store.NewLedgerFields(snapshot)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if err := service.UpdateProfile(ctx, "user1", store.ProfileFields{Name: "Renamed"}); err != nil {
		t.Fatalf("Failed to update profile: %v", err)
	}

	doc, err := service.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if doc.Name != "Renamed" {
		t.Errorf("Expected name Renamed, got %s", doc.Name)
	}
	if doc.Email != "test@example.com" {
		t.Errorf("Expected email unchanged, got %s", doc.Email)
	}
	if !doc.Ledger.Balance.Equal(decimal.NewFromInt(42)) {
		t.Errorf("Expected balance 42, got %s", doc.Ledger.Balance)
	}
}

func TestUpdateProfile_Errors(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1", "one@example.com")
	createTestUser(t, service, "user2", "two@example.com")

	if err := service.UpdateProfile(ctx, "user1", store.ProfileFields{}); !errors.Is(err, store.ErrInvalidParameters) {
		t.Errorf("Expected ErrInvalidParameters, got %v", err)
	}
	if err := service.UpdateProfile(ctx, "missing", store.ProfileFields{Name: "x"}); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if err := service.UpdateProfile(ctx, "user1", store.ProfileFields{Email: "two@example.com"}); !errors.Is(err, store.ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}
}

func TestLoad_CorruptDocument(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1", "test@example.com")

	if _, err := service.db.Exec("UPDATE ledger_accounts SET balance = 'abc' WHERE user_id = ?", "user1"); err != nil {
		t.Fatalf("Failed to corrupt row: %v", err)
	}

	if _, err := service.Load(ctx, "user1"); !errors.Is(err, store.ErrCorruptDocument) {
		t.Errorf("Expected ErrCorruptDocument, got %v", err)
	}
}

func TestGetUsers(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1", "one@example.com")
	createTestUser(t, service, "user2", "two@example.com")

	users, err := service.GetUsers(context.Background())
	if err != nil {
		t.Fatalf("Failed to get users: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}
}
