package implementation

import (
	"context"

	"storefront-chat-be/internal/model"
	"storefront-chat-be/internal/repository/contract"

	"gorm.io/gorm"
)

type UserDirectoryImpl struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) contract.UserDirectory {
	return &UserDirectoryImpl{db: db}
}

func (r *UserDirectoryImpl) FindUsername(ctx context.Context, userId string) (string, error) {
	var profile model.UserProfile
	err := r.db.WithContext(ctx).
		Select("id", "username").
		Where("id = ?", userId).
		First(&profile).Error
	if err != nil {
		return "", describe("find username", err)
	}
	return profile.Username, nil
}
