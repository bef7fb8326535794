package formance

import (
	"context"
	"errors"
	"fmt"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// account is the part of a Formance account the document store reads.
type account struct {
	Address  string
	Metadata map[string]string
}

// accounts is the slice of the Formance ledger API used to keep user
// documents in account metadata.
type accounts interface {
	EnsureLedger(ctx context.Context) error
	Get(ctx context.Context, address string) (*account, error)
	Match(ctx context.Context, key, value string) ([]account, error)
	SetMetadata(ctx context.Context, address string, metadata map[string]string) error
	Ping(ctx context.Context) error
}

// sdkAccounts implements accounts with the Formance Go SDK.
type sdkAccounts struct {
	client *v3.Formance
	ledger string
}

func newSDKAccounts(stackURL, clientID, clientSecret, ledger string) *sdkAccounts {
	client := v3.New(
		v3.WithServerURL(stackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(clientID),
			ClientSecret: v3.Pointer(clientSecret),
		}),
	)
	return &sdkAccounts{client: client, ledger: ledger}
}

// EnsureLedger creates the ledger if it does not already exist.
func (a *sdkAccounts) EnsureLedger(ctx context.Context) error {
	_, err := a.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: a.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "coin-ledger",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", a.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", a.ledger))
	return nil
}

// Get returns nil when the account does not exist.
func (a *sdkAccounts) Get(ctx context.Context, address string) (*account, error) {
	resp, err := a.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  a.ledger,
		Address: address,
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}

	acct := resp.V2AccountResponse.Data
	return &account{Address: acct.Address, Metadata: acct.Metadata}, nil
}

// Match lists the accounts whose metadata key equals value. Only the first
// page is read.
func (a *sdkAccounts) Match(ctx context.Context, key, value string) ([]account, error) {
	resp, err := a.client.Ledger.V2.ListAccounts(ctx, operations.V2ListAccountsRequest{
		Ledger:   a.ledger,
		PageSize: ptrInt64(pageSize),
		RequestBody: map[string]any{
			"$match": map[string]any{
				"metadata[" + key + "]": value,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by %s: %w", key, err)
	}

	data := resp.V2AccountsCursorResponse.Cursor.Data
	result := make([]account, 0, len(data))
	for i := range data {
		result = append(result, account{Address: data[i].Address, Metadata: data[i].Metadata})
	}
	return result, nil
}

// SetMetadata merges metadata into the account, creating it if needed.
func (a *sdkAccounts) SetMetadata(ctx context.Context, address string, metadata map[string]string) error {
	_, err := a.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:      a.ledger,
		Address:     address,
		RequestBody: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to set metadata on %s: %w", address, err)
	}
	return nil
}

func (a *sdkAccounts) Ping(ctx context.Context) error {
	_, err := a.client.Ledger.V2.ListAccounts(ctx, operations.V2ListAccountsRequest{
		Ledger:   a.ledger,
		PageSize: ptrInt64(1),
	})
	return err
}

// isNotFoundError checks whether a Formance SDK error is NOT_FOUND.
func isNotFoundError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumNotFound
}

func ptrInt64(v int64) *int64 { return &v }
