package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/linkbio/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DesignService 以 attribute/value 形式保存外观配置，值不做校验，渲染时再兜底
type DesignService struct {
	db *gorm.DB
}

func NewDesignService(gdb *gorm.DB) *DesignService {
	return &DesignService{db: gdb}
}

// Get 返回用户全部外观属性，值为 NULL 的属性以 nil 出现
func (s *DesignService) Get(userID string) (map[string]*string, error) {
	return loadDesign(s.db, userID)
}

// Upsert 按 PATCH 语义写入，未出现的属性保持不变
func (s *DesignService) Upsert(userID string, attributes map[string]*string) error {
	for key := range attributes {
		if strings.TrimSpace(key) == "" {
			return validationError("design attribute name is required")
		}
	}
	if len(attributes) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for key, value := range attributes {
			row := db.DesignAttribute{
				UserID:    userID,
				Attribute: strings.TrimSpace(key),
				Value:     value,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "attribute"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"value":      value,
					"updated_at": now,
				}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert design %s: %w", key, err)
			}
		}
		return nil
	})
}

// Clear 删除用户全部外观属性
func (s *DesignService) Clear(userID string) error {
	return clearDesign(s.db, userID)
}

func loadDesign(tx *gorm.DB, userID string) (map[string]*string, error) {
	var rows []db.DesignAttribute
	if err := tx.Where("user_id = ?", userID).Order("attribute ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load design: %w", err)
	}

	result := make(map[string]*string, len(rows))
	for _, row := range rows {
		result[row.Attribute] = row.Value
	}
	return result, nil
}

func clearDesign(tx *gorm.DB, userID string) error {
	if err := tx.Where("user_id = ?", userID).Delete(&db.DesignAttribute{}).Error; err != nil {
		return fmt.Errorf("clear design: %w", err)
	}
	return nil
}
