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

package api

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"coin-ledger-go/internal/models"
	"coin-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var currencyRegex = regexp.MustCompile(`^[a-z]{3,5}$`)

// RegisterParams are the fields collected at sign-up
type RegisterParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Photo    string `json:"photo"`
	Currency string `json:"currency"`
}

// ProfileParams are the editable profile fields. Empty fields are left as
// they are.
type ProfileParams struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
}

func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

// Register creates a user document with an empty ledger.
func (s *LedgerService) Register(ctx context.Context, params RegisterParams) (*models.ProfileView, error) {
	name := strings.TrimSpace(params.Name)
	email := strings.TrimSpace(params.Email)
	currency := strings.ToLower(strings.TrimSpace(params.Currency))

	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidParameters, err)
	}
	if err := ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidParameters, err)
	}
	if currency != "" && !currencyRegex.MatchString(currency) {
		return nil, fmt.Errorf("%w: invalid currency: %s", store.ErrInvalidParameters, params.Currency)
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrUserExists, email)
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	userId := uuid.New().String()
	zap.L().Info("Registering user",
		zap.String("id", userId),
		zap.String("name", name),
		zap.String("email", email))

	doc, err := s.store.CreateUser(ctx, store.CreateUserParams{
		Id:       userId,
		Name:     name,
		Email:    email,
		Photo:    strings.TrimSpace(params.Photo),
		Currency: currency,
	})
	if err != nil {
		if !errors.Is(err, store.ErrUserExists) {
			zap.L().Error("Failed to create user", zap.String("email", email), zap.Error(err))
		}
		return nil, err
	}

	return profileOf(doc), nil
}

func (s *LedgerService) GetProfile(ctx context.Context, userId string) (*models.ProfileView, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}
	doc, err := s.store.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return profileOf(doc), nil
}

// UpdateProfile edits profile fields only. The ledger half of the document
// is not read or written.
func (s *LedgerService) UpdateProfile(ctx context.Context, userId string, params ProfileParams) (*models.ProfileView, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}

	fields := store.ProfileFields{
		Name:  strings.TrimSpace(params.Name),
		Email: strings.TrimSpace(params.Email),
		Photo: strings.TrimSpace(params.Photo),
	}
	if fields.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", store.ErrInvalidParameters)
	}
	if fields.Name != "" {
		if err := ValidateName(fields.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidParameters, err)
		}
	}
	if fields.Email != "" {
		if err := ValidateEmail(fields.Email); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidParameters, err)
		}
	}

	if err := s.store.UpdateProfile(ctx, userId, fields); err != nil {
		if !errors.Is(err, store.ErrUserNotFound) && !errors.Is(err, store.ErrUserExists) {
			zap.L().Error("Failed to update profile", zap.String("user_id", userId), zap.Error(err))
		}
		return nil, err
	}

	return s.GetProfile(ctx, userId)
}

func profileOf(doc *models.UserDocument) *models.ProfileView {
	return &models.ProfileView{
		Id:        doc.Id,
		Name:      doc.Name,
		Email:     doc.Email,
		Photo:     doc.Photo,
		Currency:  doc.Currency,
		CreatedAt: doc.CreatedAt,
	}
}
