package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"
	"tasknotes/tasknotes/utils/token"

	"github.com/google/uuid"
)

// Use the JWTClaims from token package
type JWTClaims = token.JWTClaims

// TokenPair is what login, registration and refresh hand back to clients.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AuthServiceInterface interface {
	Register(db *database.Database, username, email, password string) (models.User, TokenPair, error)
	Login(db *database.Database, username, password string) (TokenPair, error)
	Refresh(db *database.Database, refreshToken string) (TokenPair, error)
	Logout(db *database.Database, userID uuid.UUID, refreshToken string) error
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type AuthService struct {
	jwtSecret       []byte
	accessLifetime  time.Duration
	refreshLifetime time.Duration
	users           UserServiceInterface
	blacklist       TokenBlacklist
}

func NewAuthService(jwtSecret string, accessLifetime, refreshLifetime time.Duration, users UserServiceInterface, blacklist TokenBlacklist) *AuthService {
	return &AuthService{
		jwtSecret:       []byte(jwtSecret),
		accessLifetime:  accessLifetime,
		refreshLifetime: refreshLifetime,
		users:           users,
		blacklist:       blacklist,
	}
}

// Register creates the user and immediately issues a token pair.
func (s *AuthService) Register(db *database.Database, username, email, password string) (models.User, TokenPair, error) {
	user, err := s.users.CreateUser(db, username, email, password)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}

	return user, pair, nil
}

func (s *AuthService) Login(db *database.Database, username, password string) (TokenPair, error) {
	if username == "" || password == "" {
		return TokenPair{}, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := s.users.Authenticate(db, username, password)
	if err != nil {
		return TokenPair{}, err
	}

	return s.issuePair(user)
}

// Refresh rotates a refresh token: the presented token is blacklisted
// before a new pair is issued, so a replayed token always fails.
func (s *AuthService) Refresh(db *database.Database, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh token required", ErrValidation)
	}

	claims, err := token.ValidateToken(refreshToken, s.jwtSecret, token.RefreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	revoked, err := s.blacklist.IsRevoked(db, claims.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if revoked {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidToken, ErrTokenRevoked)
	}

	user, err := s.users.GetUserById(db, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
		}
		return TokenPair{}, err
	}

	if err := s.blacklist.Revoke(db, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			return TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return TokenPair{}, err
	}

	return s.issuePair(user)
}

// Logout blacklists the caller's refresh token. The paired access token
// stays valid until it expires.
func (s *AuthService) Logout(db *database.Database, userID uuid.UUID, refreshToken string) error {
	if userID == uuid.Nil {
		return ErrUnauthorized
	}
	if refreshToken == "" {
		return fmt.Errorf("%w: Refresh token required", ErrValidation)
	}

	claims, err := token.ValidateToken(refreshToken, s.jwtSecret, token.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID != userID {
		return fmt.Errorf("%w: token does not belong to user", ErrInvalidToken)
	}

	if err := s.blacklist.Revoke(db, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return err
	}

	log.Printf("Refresh token %s revoked for user %s", claims.ID, userID)
	return nil
}

// ValidateToken checks an access token. Access tokens are not looked up in
// the blacklist.
func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	return token.ValidateToken(tokenString, s.jwtSecret, token.AccessToken)
}

// PurgeRevokedTokens removes blacklist entries of expired tokens.
func (s *AuthService) PurgeRevokedTokens(db *database.Database) (int64, error) {
	return s.blacklist.PurgeExpired(db, time.Now())
}

func (s *AuthService) issuePair(user models.User) (TokenPair, error) {
	access, _, err := token.GenerateToken(user.ID, user.Username, token.AccessToken, s.jwtSecret, s.accessLifetime)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, _, err := token.GenerateToken(user.ID, user.Username, token.RefreshToken, s.jwtSecret, s.refreshLifetime)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

var AuthServiceInstance AuthServiceInterface
