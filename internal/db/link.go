package db

import "time"

// Link 是公开页上的一个按钮链接。
// Order 从 0 开始，值越小越靠前；列名避开 SQL 关键字 order。
type Link struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;index;not null"`
	Title     string `gorm:"size:255;not null"`
	URL       string `gorm:"size:2048;not null"`
	IsVisible bool   `gorm:"not null"`
	Order     int    `gorm:"column:sort_order;not null"`
	CreatedAt time.Time
}

// TableName 返回自定义表名
func (Link) TableName() string {
	return "links"
}
