package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/utils"
)

// ErrUsernameTaken is returned when registering an existing username.
var ErrUsernameTaken = errors.New("username already taken")

// UserDirectory looks users up by name. It implements UserLookup.
type UserDirectory struct {
	db *gorm.DB
}

// NewUserDirectory creates a UserDirectory over the users table.
func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// FindIDByExactName returns the id of the user named exactly name.
func (u *UserDirectory) FindIDByExactName(ctx context.Context, name string) (uint, bool, error) {
	var ids []uint
	err := u.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", name).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// FindIDsByNameLike returns ids of users whose name contains fragment, ignoring case.
func (u *UserDirectory) FindIDsByNameLike(ctx context.Context, fragment string) ([]uint, error) {
	var ids []uint
	err := u.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) LIKE ? ESCAPE '!'", containsPattern(fragment)).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// Register creates a user with a bcrypt password hash.
func (u *UserDirectory) Register(ctx context.Context, username, password string) (*models.User, error) {
	input := struct {
		Username string `validate:"required,min=2,max=64"`
		Password string `validate:"required,min=6,max=72"`
	}{Username: strings.TrimSpace(username), Password: password}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	if _, found, err := u.FindIDByExactName(ctx, input.Username); err != nil {
		return nil, err
	} else if found {
		return nil, ErrUsernameTaken
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Username: input.Username, PasswordHash: hash}
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user matching the credentials or ErrNotFound.
func (u *UserDirectory) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrNotFound
	}
	return &user, nil
}

// ByID loads a user by id.
func (u *UserDirectory) ByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
