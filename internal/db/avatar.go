package db

import "time"

// Avatar 是头像库中的一张图片，ObjectKey 为存储后端内的路径
type Avatar struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;index;not null"`
	ObjectKey string `gorm:"size:512;not null"`
	URL       string `gorm:"size:2048;not null"`
	CreatedAt time.Time
}

// TableName 返回自定义表名
func (Avatar) TableName() string {
	return "avatars"
}
