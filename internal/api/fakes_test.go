package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/market"
	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// memoryStore is an in-memory store.DocumentStore for service tests.
type memoryStore struct {
	mu      sync.Mutex
	docs    map[string]*models.UserDocument
	saveErr error
	saves   int
}

var _ store.DocumentStore = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: map[string]*models.UserDocument{}}
}

func (m *memoryStore) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.UserDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if strings.EqualFold(doc.Email, params.Email) {
			return nil, store.ErrUserExists
		}
	}
	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}
	doc := &models.UserDocument{
		User: models.User{
			Id:        params.Id,
			Name:      params.Name,
			Email:     params.Email,
			Photo:     params.Photo,
			Currency:  currency,
			CreatedAt: time.Now(),
		},
		Ledger: ledger.NewSnapshot(),
	}
	m.docs[params.Id] = doc
	return m.copyOf(doc), nil
}

func (m *memoryStore) copyOf(doc *models.UserDocument) *models.UserDocument {
	c := *doc
	c.Ledger = doc.Ledger.Clone()
	return &c
}

func (m *memoryStore) GetUser(ctx context.Context, userId string) (*models.UserDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[userId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	return m.copyOf(doc), nil
}

func (m *memoryStore) GetUserByEmail(ctx context.Context, email string) (*models.UserDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if strings.EqualFold(doc.Email, email) {
			return m.copyOf(doc), nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memoryStore) GetUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, doc := range m.docs {
		users = append(users, doc.User)
	}
	return users, nil
}

func (m *memoryStore) UpdateProfile(ctx context.Context, userId string, fields store.ProfileFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[userId]
	if !ok {
		return store.ErrUserNotFound
	}
	if fields.Name != "" {
		doc.Name = fields.Name
	}
	if fields.Email != "" {
		doc.Email = fields.Email
	}
	if fields.Photo != "" {
		doc.Photo = fields.Photo
	}
	return nil
}

func (m *memoryStore) Load(ctx context.Context, userId string) (ledger.Snapshot, error) {
	doc, err := m.GetUser(ctx, userId)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return doc.Ledger, nil
}

func (m *memoryStore) Save(ctx context.Context, userId string, fields store.LedgerFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	doc, ok := m.docs[userId]
	if !ok {
		return store.ErrUserNotFound
	}
	doc.Ledger = fields.Snapshot.Clone()
	m.saves++
	return nil
}

func (m *memoryStore) Ping(ctx context.Context) error { return nil }

func (m *memoryStore) Close() {}

// fakeMarket serves fixed prices.
type fakeMarket struct {
	coins []models.Coin
	err   error
}

func (f *fakeMarket) Coins(ctx context.Context, currency string) ([]models.Coin, error) {
	return f.coins, f.err
}

func (f *fakeMarket) Quote(ctx context.Context, coinId, currency string) (models.Coin, error) {
	if f.err != nil {
		return models.Coin{}, f.err
	}
	for _, coin := range f.coins {
		if coin.Id == coinId {
			if !coin.CurrentPrice.IsPositive() {
				return models.Coin{}, market.ErrPriceUnavailable
			}
			return coin, nil
		}
	}
	return models.Coin{}, market.ErrUnknownCoin
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{coins: []models.Coin{
		{Id: "bitcoin", Symbol: "btc", Name: "Bitcoin", Image: "https://img/btc.png", CurrentPrice: decimal.NewFromInt(300)},
		{Id: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: decimal.NewFromInt(50)},
		{Id: "delisted", Symbol: "dls", Name: "Delisted"},
	}}
}

var errBoom = errors.New("boom")
