package db

import "time"

// Profile 与 User 一对一，保存公开页的基础信息。
// AvatarURL 是当前头像 URL 的冗余副本而非外键，删除头像时需手动清理。
type Profile struct {
	ID          uint    `gorm:"primaryKey"`
	UserID      string  `gorm:"size:36;uniqueIndex;not null"`
	DisplayName string  `gorm:"size:120;not null"`
	Username    string  `gorm:"size:120;uniqueIndex;not null"`
	Bio         *string `gorm:"type:text"`
	AvatarURL   *string `gorm:"size:1024"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 返回自定义表名
func (Profile) TableName() string {
	return "profiles"
}
