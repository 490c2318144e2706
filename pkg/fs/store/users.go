package store

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"

	"github.com/shelf-fs/shelf/pkg/fs/models"
)

// SeedPermissions inserts the default role grants, skipping rows that
// already exist. Safe to run on every startup.
func (s *GORMStore) SeedPermissions(ctx context.Context) error {
	perms := models.DefaultPermissions()
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&perms).Error
}

// CreateUser creates a user with a bcrypt-hashed password and returns it.
func (c *Conn) CreateUser(username, password string, role models.UserRole) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         string(role),
	}

	if err := c.db.Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.ErrDuplicateUser
		}
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by id.
func (c *Conn) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := c.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrUserNotFound)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (c *Conn) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := c.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrUserNotFound)
	}
	return &user, nil
}

// ValidateCredentials checks a username/password pair and returns the user
// on success. Unknown users and wrong passwords return the same
// ErrInvalidCredentials so login responses do not leak which usernames
// exist.
func (c *Conn) ValidateCredentials(username, password string) (*models.User, error) {
	user, err := c.GetUserByUsername(username)
	if err != nil {
		if err == models.ErrUserNotFound {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

// UpdatePassword rehashes and stores a new password for the user.
func (c *Conn) UpdatePassword(userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	result := c.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", string(hash))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// ListUsers returns all users ordered by creation time.
func (c *Conn) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := c.db.Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user account. Mediums and items owned by the user
// are left in place; they become unreachable once no token can name them.
func (c *Conn) DeleteUser(id string) error {
	result := c.db.Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// HasAbility reports whether the user's role grants the ability on the
// scope.
func (c *Conn) HasAbility(userID string, scope models.Scope, ability models.Ability) (bool, error) {
	user, err := c.GetUserByID(userID)
	if err != nil {
		return false, err
	}

	var perm models.RolePermission
	err = c.db.Where("role = ? AND scope = ? AND ability = ?", user.Role, scope, ability).
		First(&perm).Error
	if err != nil {
		if convertNotFoundError(err, nil) == nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
