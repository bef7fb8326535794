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

package store

import (
	"context"
	"errors"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrCorruptDocument   = errors.New("corrupt user document")
	ErrInvalidParameters = errors.New("invalid parameters")
)

// CreateUserParams contains the profile fields set at registration.
type CreateUserParams struct {
	Id       string
	Name     string
	Email    string
	Photo    string
	Currency string
}

// LedgerFields are the document fields owned by the ledger. Save writes
// exactly these and nothing else.
type LedgerFields struct {
	Snapshot ledger.Snapshot
}

// NewLedgerFields captures a snapshot for saving, recomputing the derived
// position count so a stale value is never persisted.
func NewLedgerFields(s ledger.Snapshot) LedgerFields {
	s = s.Clone()
	s.CoinsCount = len(s.Portfolio)
	return LedgerFields{Snapshot: s}
}

// ProfileFields are the document fields owned by the profile page. Empty
// values are left unchanged.
type ProfileFields struct {
	Name  string
	Email string
	Photo string
}

// IsEmpty reports whether there is nothing to update.
func (p ProfileFields) IsEmpty() bool {
	return p.Name == "" && p.Email == "" && p.Photo == ""
}

// DocumentStore defines the contract that every backend (SQLite, PostgreSQL, ...) must satisfy.
//
// Writes are last-writer-wins: there is no version check, so two sessions of
// the same user trading concurrently can overwrite each other's balance.
type DocumentStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, params CreateUserParams) (*models.UserDocument, error)
	GetUser(ctx context.Context, userId string) (*models.UserDocument, error)
	GetUserByEmail(ctx context.Context, email string) (*models.UserDocument, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, userId string, fields ProfileFields) error

	// --- Ledger ---
	Load(ctx context.Context, userId string) (ledger.Snapshot, error)
	Save(ctx context.Context, userId string, fields LedgerFields) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
