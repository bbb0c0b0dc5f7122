package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/models"
	"gorm.io/gorm"
)

// Users reads and writes users.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) Users {
	return Users{db: db}
}

// Get returns the user with the given ID.
func (s Users) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	return user, err
}

// Create creates a user together with the starter categories.
func (s Users) Create(ctx context.Context, name, email string) (models.User, error) {
	user := models.User{Name: name, Email: email}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		categories, err := models.StarterCategories(user.ID)
		if err != nil {
			return err
		}
		return tx.Create(&categories).Error
	})

	return user, err
}

// Update changes name and email of a user. Nil values are left untouched.
func (s Users) Update(ctx context.Context, id uuid.UUID, name, email *string) (models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if name != nil {
		user.Name = *name
	}
	if email != nil {
		user.Email = *email
	}

	err = s.db.WithContext(ctx).Model(&user).Select("name", "email").Updates(&user).Error
	return user, err
}
