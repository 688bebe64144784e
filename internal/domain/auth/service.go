package auth

import (
	"context"
	"errors"
	"time"
)

const tokenTTL = 12 * time.Hour

type Service struct {
	store  StoreAPI
	secret string
}

func NewService(store StoreAPI, secret string) *Service {
	return &Service{store: store, secret: secret}
}

// Login verifies the credentials and issues a signed token. The same
// error comes back for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", User{}, ErrInvalidCredentials
		}
		return "", User{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return "", User{}, ErrInvalidCredentials
	}
	token, err := GenerateToken(s.secret, Claims{UserID: user.ID, Role: user.Role}, tokenTTL)
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

func (s *Service) Parse(tokenString string) (*Claims, error) {
	return ParseToken(s.secret, tokenString)
}
