// Package users manages accounts: registration, authentication and password
// changes. Trading state on the account belongs to the ledger and store, not
// here.
package users

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"papertrade/internal/errs"
	"papertrade/internal/models"
	"papertrade/internal/validate"
)

const bcryptCost = 12

// StartingCash is the fixed balance every new account opens with.
var StartingCash = decimal.NewFromInt(10000)

type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string, startingCash decimal.Decimal) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

type Service struct {
	store Store
	log   *logrus.Logger
}

func NewService(store Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log}
}

// Register creates an account with the starting cash balance. Duplicate
// usernames are rejected by the store's unique constraint.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username, err := validate.Username(username)
	if err != nil {
		return nil, err
	}
	if err := validate.Password(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, err, "hash password")
	}

	u, err := s.store.CreateUser(ctx, username, string(hash), StartingCash)
	if err != nil {
		return nil, err
	}
	s.log.Infof("registered user %s", u.Username)
	return u, nil
}

// Authenticate checks the credentials and returns the account. The error does
// not reveal whether the username or the password was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username, err := validate.Username(username)
	if err != nil {
		return nil, errs.New(errs.KindValidation, "either the username or password is invalid")
	}
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, errs.New(errs.KindValidation, "either the username or password is invalid")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errs.New(errs.KindValidation, "either the username or password is invalid")
	}
	return u, nil
}

// ChangePassword replaces the stored credential for username.
func (s *Service) ChangePassword(ctx context.Context, username, newPassword string) error {
	username, err := validate.Username(username)
	if err != nil {
		return err
	}
	if err := validate.Password(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, err, "hash password")
	}
	return s.store.UpdatePassword(ctx, username, string(hash))
}
