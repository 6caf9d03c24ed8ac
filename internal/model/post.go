package model

import "time"

// Post 短文本动态，创建后不可修改
type Post struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	AuthorID  string    `gorm:"type:varchar(36);index:idx_post_author_created,priority:1;not null"`
	Author    User      `gorm:"foreignKey:AuthorID"`
	Body      string    `gorm:"type:varchar(140);not null"`
	CreatedAt time.Time `gorm:"index:idx_post_author_created,priority:2;index:idx_post_created"`
}

func (Post) TableName() string { return "posts" }
