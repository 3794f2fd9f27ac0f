package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

const RoleBusinessOwner = "business_owner"

// Register creates an owner account. The new user's id becomes the owner id
// for everything they record.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return domain.User{}, err
	}

	if _, err := s.FindUserByEmail(ctx, req.Email); err == nil {
		return domain.User{}, invalidField("email", "is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		Email:        req.Email,
		Name:         req.Name,
		BusinessName: strings.TrimSpace(req.BusinessName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         RoleBusinessOwner,
		PasswordHash: string(hash),
		Settings: domain.UserSettings{
			Currency:      "ZAR",
			Language:      "en",
			TaxRate:       s.defaultTax,
			Notifications: true,
			LowStockAlert: true,
		},
	}
	id, err := s.docs.AddDocument(ctx, store.CollectionUsers, store.UsersOwner, user)
	if err != nil {
		return domain.User{}, err
	}
	record, err := s.docs.GetDocument(ctx, store.CollectionUsers, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := record.Decode(&user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// FindUserByEmail returns store.ErrNotFound when no account uses email.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, store.ErrNotFound
	}
	records, err := s.docs.GetCollection(ctx, store.CollectionUsers, store.UsersOwner, store.Filters{"email": email})
	if err != nil {
		return domain.User{}, err
	}
	if len(records) == 0 {
		return domain.User{}, store.ErrNotFound
	}
	var user domain.User
	if err := records[0].Decode(&user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
