package db

import "time"

// DesignAttribute 是按用户存储的外观设置键值对，例如 wallpaper.type。
// Value 为 NULL 与记录不存在是两种不同状态
type DesignAttribute struct {
	ID        uint    `gorm:"primaryKey"`
	UserID    string  `gorm:"size:36;not null;uniqueIndex:idx_design_user_attribute"`
	Attribute string  `gorm:"size:100;not null;uniqueIndex:idx_design_user_attribute"`
	Value     *string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 返回自定义表名
func (DesignAttribute) TableName() string {
	return "design_attributes"
}
