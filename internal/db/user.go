package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 是唯一管理员账号，其余实体都通过 UserID 归属于它
type User struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:120;not null"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 返回自定义表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 在未指定主键时生成 uuid
func (u *User) BeforeCreate(*gorm.DB) error {
	if strings.TrimSpace(u.ID) == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
