package model

import "time"

// User 账户；username、email 全局唯一
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex:ux_users_username;not null"`
	Email        string    `gorm:"type:varchar(120);uniqueIndex:ux_users_email;not null"`
	PasswordHash string    `gorm:"type:varchar(128);not null"`
	AboutMe      string    `gorm:"type:varchar(140)"`
	LastSeen     time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }
