package db

import "time"

// Social 保存某个平台的账号或链接，每个用户每个平台至多一条。
// Value 为空的记录不会落库，而是直接删除
type Social struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;not null;uniqueIndex:idx_socials_user_platform"`
	Platform  string `gorm:"size:32;not null;uniqueIndex:idx_socials_user_platform"`
	Value     string `gorm:"size:512;not null"`
	Order     int    `gorm:"column:sort_order;not null"`
	IsVisible bool   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 返回自定义表名
func (Social) TableName() string {
	return "socials"
}
