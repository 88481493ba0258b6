package services

import (
	"errors"
	"fmt"
	"strings"

	"tasknotes/tasknotes/broker"
	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserServiceInterface is the credential store: it creates users and
// verifies their passwords.
type UserServiceInterface interface {
	CreateUser(db *database.Database, username, email, password string) (models.User, error)
	GetUserById(db *database.Database, id uuid.UUID) (models.User, error)
	Authenticate(db *database.Database, username, password string) (models.User, error)
}

type UserService struct {
	hashCost int
}

func NewUserService() *UserService {
	return &UserService{hashCost: bcrypt.DefaultCost}
}

func (s *UserService) CreateUser(db *database.Database, username, email, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, fmt.Errorf("%w: Username and password required", ErrValidation)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.User{}, tx.Error
	}

	var existing int64
	if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		tx.Rollback()
		return models.User{}, err
	}
	if existing > 0 {
		tx.Rollback()
		return models.User{}, fmt.Errorf("%w: Username already exists", ErrResourceExists)
	}

	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
	}

	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		// The unique index wins a race between two registrations.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, fmt.Errorf("%w: Username already exists", ErrResourceExists)
		}
		return models.User{}, err
	}

	if err := recordEvent(tx, broker.UserCreated, "user", "create", user.ID, map[string]interface{}{
		"user_id":  user.ID.String(),
		"username": user.Username,
	}); err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	return user, nil
}

func (s *UserService) GetUserById(db *database.Database, id uuid.UUID) (models.User, error) {
	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Authenticate returns the user matching username and password. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(db *database.Database, username, password string) (models.User, error) {
	var user models.User
	if err := db.DB.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

var UserServiceInstance UserServiceInterface = NewUserService()
