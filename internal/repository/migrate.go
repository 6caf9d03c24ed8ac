package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

// Migrate 初始化数据库表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Follow{}, &model.Post{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
