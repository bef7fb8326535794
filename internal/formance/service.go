package formance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"go.uber.org/zap"
)

const (
	pageSize        = 100
	userPrefix      = "users:"
	defaultLedger   = "coin-ledger"
	defaultCurrency = "usd"
)

// Compile-time check: *Service must satisfy store.DocumentStore.
var _ store.DocumentStore = (*Service)(nil)

// Service implements store.DocumentStore on a Formance Stack ledger. Each
// user document lives in the metadata of the users:{id} account.
type Service struct {
	accounts accounts
	now      func() time.Time
}

// NewService connects to the stack, creates the ledger if it doesn't
// already exist, and returns ready to use.
func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedger
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	accts := newSDKAccounts(cfg.StackURL, cfg.ClientID, cfg.ClientSecret, cfg.LedgerName)
	if err := accts.EnsureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance service initialized", zap.String("ledger", cfg.LedgerName))
	return newService(accts), nil
}

func newService(accts accounts) *Service {
	return &Service{accounts: accts, now: time.Now}
}

// Close is a no-op for the Formance backend (HTTP client needs no teardown).
func (s *Service) Close() {}

func (s *Service) Ping(ctx context.Context) error {
	return s.accounts.Ping(ctx)
}

// ---------- Users ----------

func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.UserDocument, error) {
	if params.Id == "" || params.Name == "" || params.Email == "" {
		return nil, fmt.Errorf("%w: id, name and email are required", store.ErrInvalidParameters)
	}
	if params.Currency == "" {
		params.Currency = defaultCurrency
	}

	if existing, err := s.findByEmail(ctx, params.Email); err != nil {
		return nil, err
	} else if existing != nil {
		zap.L().Info("User with this email already exists in Formance",
			zap.String("existing_address", existing.Address),
			zap.String("email", params.Email))
		return nil, fmt.Errorf("%w: %s", store.ErrUserExists, params.Email)
	}

	addr := userPrefix + params.Id
	acct, err := s.accounts.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if isUser(acct) {
		return nil, fmt.Errorf("%w: %s", store.ErrUserExists, params.Id)
	}

	zap.L().Info("Creating user in Formance", zap.String("address", addr), zap.String("email", params.Email))

	now := s.now().UTC()
	metadata := profileMetadata(params.Name, params.Email, params.Photo)
	metadata[keyEntityType] = entityEndUser
	metadata[keyActive] = "true"
	metadata[keyCurrency] = strings.ToLower(params.Currency)
	metadata[keyCreatedAt] = now.Format(time.RFC3339Nano)
	metadata[keyUpdatedAt] = now.Format(time.RFC3339Nano)
	for k, v := range ledgerMetadata(store.NewLedgerFields(ledger.NewSnapshot()).Snapshot) {
		metadata[k] = v
	}

	if err := s.accounts.SetMetadata(ctx, addr, metadata); err != nil {
		return nil, fmt.Errorf("failed to create user account: %w", err)
	}

	return s.GetUser(ctx, params.Id)
}

// GetUser returns the full document of userId: profile plus ledger snapshot.
func (s *Service) GetUser(ctx context.Context, userId string) (*models.UserDocument, error) {
	acct, err := s.accounts.Get(ctx, userPrefix+userId)
	if err != nil {
		return nil, err
	}
	if !isUser(acct) {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	return documentOf(acct)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.UserDocument, error) {
	acct, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
	}
	return documentOf(acct)
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	accts, err := s.accounts.Match(ctx, keyEntityType, entityEndUser)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var users []models.User
	for i := range accts {
		if !isUser(&accts[i]) || accts[i].Metadata[keyActive] != "true" {
			continue
		}
		users = append(users, userOf(&accts[i]))
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Id < users[j].Id
	})

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

// UpdateProfile writes the non-empty profile fields. Ledger metadata is left
// as it is.
func (s *Service) UpdateProfile(ctx context.Context, userId string, fields store.ProfileFields) error {
	if fields.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", store.ErrInvalidParameters)
	}

	addr := userPrefix + userId
	acct, err := s.accounts.Get(ctx, addr)
	if err != nil {
		return err
	}
	if !isUser(acct) {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	if fields.Email != "" {
		other, err := s.findByEmail(ctx, fields.Email)
		if err != nil {
			return err
		}
		if other != nil && other.Address != addr {
			return fmt.Errorf("%w: %s", store.ErrUserExists, fields.Email)
		}
	}

	metadata := profileMetadata(fields.Name, fields.Email, fields.Photo)
	metadata[keyUpdatedAt] = s.now().UTC().Format(time.RFC3339Nano)
	if err := s.accounts.SetMetadata(ctx, addr, metadata); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// ---------- Ledger ----------

func (s *Service) Load(ctx context.Context, userId string) (ledger.Snapshot, error) {
	acct, err := s.accounts.Get(ctx, userPrefix+userId)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if !isUser(acct) {
		return ledger.Snapshot{}, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	return snapshotOf(acct.Metadata)
}

// Save replaces the ledger metadata of userId. The account must already
// hold a user document.
func (s *Service) Save(ctx context.Context, userId string, fields store.LedgerFields) error {
	snapshot := fields.Snapshot
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("%w: refusing to save: %v", store.ErrCorruptDocument, err)
	}

	addr := userPrefix + userId
	acct, err := s.accounts.Get(ctx, addr)
	if err != nil {
		return err
	}
	if !isUser(acct) {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	zap.L().Info("Saving ledger snapshot",
		zap.String("user_id", userId),
		zap.String("balance", snapshot.Balance.String()),
		zap.Int("coins_count", snapshot.CoinsCount))

	metadata := ledgerMetadata(snapshot)
	metadata[keyUpdatedAt] = s.now().UTC().Format(time.RFC3339Nano)
	if err := s.accounts.SetMetadata(ctx, addr, metadata); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*account, error) {
	accts, err := s.accounts.Match(ctx, keyEmailKey, emailKey(email))
	if err != nil {
		return nil, fmt.Errorf("failed to search user by email: %w", err)
	}
	for i := range accts {
		if isUser(&accts[i]) {
			return &accts[i], nil
		}
	}
	return nil, nil
}
