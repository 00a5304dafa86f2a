package services

import (
	"fmt"

	"feedlab/auth"
	"feedlab/domain"
	"feedlab/errors"
	"feedlab/repositories"
)

type IAuthService interface {
	Register(email, password string) (Token, domain.Identity, error)
	Login(email, password string) (Token, domain.Identity, error)
	Authenticate(email, password string) (domain.Identity, error)
	Verify(token string) (domain.Identity, error)
}

// AuthService is the identity provider of the feed: it owns credential
// verification, account creation and session tokens.
type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
}

type Token string

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenManager) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(email, password string) (Token, domain.Identity, error) {
	creds := auth.Credentials{Email: email, Password: password}

	// 1. Validate shape and complexity before any expensive hashing.
	if err := auth.ValidateCredentials(creds); err != nil {
		return "", domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash here so the repository never sees plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.Identity{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(email, hashedPassword)
	if err != nil {
		return "", domain.Identity{}, err // propagates ErrUserAlreadyExists
	}

	identity := domain.Identity{UID: userID, Email: email}
	token, err := s.tokens.Generate(userID, email)
	if err != nil {
		return "", domain.Identity{}, errors.ErrTokenGeneration
	}
	return Token(token), identity, nil
}

func (s *AuthService) Login(email, password string) (Token, domain.Identity, error) {
	identity, err := s.Authenticate(email, password)
	if err != nil {
		return "", domain.Identity{}, err
	}
	token, err := s.tokens.Generate(identity.UID, identity.Email)
	if err != nil {
		return "", domain.Identity{}, errors.ErrTokenGeneration
	}
	return Token(token), identity, nil
}

// Authenticate checks credentials against the user store. The error is
// generic on purpose, to prevent user enumeration.
func (s *AuthService) Authenticate(email, password string) (domain.Identity, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		return domain.Identity{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.Identity{}, errors.ErrInvalidCredentials
	}
	return domain.Identity{UID: user.ID, Email: user.Email}, nil
}

// Verify restores an identity from a previously issued token. Used once
// per connection, at setup.
func (s *AuthService) Verify(token string) (domain.Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Identity{}, errors.ErrInvalidToken
	}
	return domain.Identity{UID: claims.UserID, Email: claims.Email}, nil
}
