package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialService 维护社交平台图标，(user_id, platform) 唯一
type SocialService struct {
	db *gorm.DB
}

// NewSocialService 构造 SocialService
func NewSocialService(gdb *gorm.DB) *SocialService {
	return &SocialService{db: gdb}
}

// SocialInput 描述一次批量提交中的单个平台。
// Order/IsVisible 为空时分别回退为提交序号与 true
type SocialInput struct {
	Platform  string
	Value     string
	Order     *int
	IsVisible *bool
}

// SocialOrder 描述单个平台的目标位置
type SocialOrder struct {
	Platform string
	Order    int
}

// List 返回用户的社交平台，按 order 升序
func (s *SocialService) List(userID string) ([]db.Social, error) {
	var items []db.Social
	if err := s.db.Where("user_id = ?", userID).
		Order("sort_order ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list socials: %w", err)
	}
	return items, nil
}

// Upsert 批量写入社交平台。先整体校验，任一非法即整体失败；
// 空值表示删除该平台记录。
func (s *SocialService) Upsert(userID string, items []SocialInput) error {
	for _, item := range items {
		platform := strings.TrimSpace(item.Platform)
		if !validation.IsSupportedPlatform(platform) {
			return validationError("unsupported platform %q", item.Platform)
		}
		if !validation.IsEmptyOrValidSocialValue(platform, item.Value) {
			return validationError("%s value is invalid", capitalize(platform))
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for index, item := range items {
			platform := strings.TrimSpace(item.Platform)
			value := strings.TrimSpace(item.Value)

			if value == "" {
				if err := tx.Where("user_id = ? AND platform = ?", userID, platform).
					Delete(&db.Social{}).Error; err != nil {
					return fmt.Errorf("delete social %s: %w", platform, err)
				}
				continue
			}

			order := index
			if item.Order != nil {
				order = *item.Order
			}
			visible := true
			if item.IsVisible != nil {
				visible = *item.IsVisible
			}

			row := db.Social{
				UserID:    userID,
				Platform:  platform,
				Value:     value,
				Order:     order,
				IsVisible: visible,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"value":      value,
					"sort_order": order,
					"is_visible": visible,
					"updated_at": time.Now(),
				}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert social %s: %w", platform, err)
			}
		}
		return nil
	})
}

// Reorder 按平台写入新的排序值
func (s *SocialService) Reorder(userID string, items []SocialOrder) error {
	if len(items) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.Model(&db.Social{}).
				Where("user_id = ? AND platform = ?", userID, strings.TrimSpace(item.Platform)).
				Updates(map[string]interface{}{"sort_order": item.Order, "updated_at": time.Now()}).Error; err != nil {
				return fmt.Errorf("reorder socials: %w", err)
			}
		}
		return nil
	})
}

// Clear 删除用户全部社交平台，仅用于注销账号
func (s *SocialService) Clear(userID string) error {
	return clearSocials(s.db, userID)
}

func clearSocials(tx *gorm.DB, userID string) error {
	if err := tx.Where("user_id = ?", userID).Delete(&db.Social{}).Error; err != nil {
		return fmt.Errorf("clear socials: %w", err)
	}
	return nil
}

func capitalize(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
