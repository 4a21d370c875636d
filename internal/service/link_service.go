package service

import (
	"fmt"
	"strings"

	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/validation"
	"gorm.io/gorm"
)

// LinkService 负责维护公开页链接列表，所有写操作都以 id + user_id 限定归属
type LinkService struct {
	db *gorm.DB
}

// NewLinkService 构造 LinkService
func NewLinkService(gdb *gorm.DB) *LinkService {
	return &LinkService{db: gdb}
}

// LinkOrder 描述拖拽结束后某条链接的最终位置
type LinkOrder struct {
	ID       uint
	NewOrder int
}

// List 返回用户的全部链接，按 order 升序
func (s *LinkService) List(userID string) ([]db.Link, error) {
	var items []db.Link
	if err := s.db.Where("user_id = ?", userID).
		Order("sort_order ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return items, nil
}

// Add 新增链接并追加到末尾（max(order)+1，首条为 0）。
// 并发新增可能得到相同的 order，order 仅作展示提示。
func (s *LinkService) Add(userID, title, rawURL string) (*db.Link, error) {
	title, rawURL, err := validateLinkInput(title, rawURL)
	if err != nil {
		return nil, err
	}

	order, err := s.nextOrder(userID)
	if err != nil {
		return nil, err
	}

	link := db.Link{
		UserID:    userID,
		Title:     title,
		URL:       rawURL,
		IsVisible: true,
		Order:     order,
	}
	if err := s.db.Create(&link).Error; err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}
	return &link, nil
}

// Update 仅修改标题与地址，不属于该用户的 id 静默忽略
func (s *LinkService) Update(userID string, id uint, title, rawURL string) error {
	title, rawURL, err := validateLinkInput(title, rawURL)
	if err != nil {
		return err
	}

	if err := s.db.Model(&db.Link{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"title": title, "url": rawURL}).Error; err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	return nil
}

// Reorder 在同一事务内写入客户端提交的完整排序
func (s *LinkService) Reorder(userID string, items []LinkOrder) error {
	for _, item := range items {
		if item.NewOrder < 0 {
			return validationError("order must not be negative")
		}
	}
	if len(items) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.Model(&db.Link{}).
				Where("id = ? AND user_id = ?", item.ID, userID).
				Update("sort_order", item.NewOrder).Error; err != nil {
				return fmt.Errorf("reorder links: %w", err)
			}
		}
		return nil
	})
}

// ToggleVisibility 用单条 UPDATE 取反可见性，避免读改写竞争
func (s *LinkService) ToggleVisibility(userID string, id uint) error {
	if err := s.db.Model(&db.Link{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_visible", gorm.Expr("NOT is_visible")).Error; err != nil {
		return fmt.Errorf("toggle link visibility: %w", err)
	}
	return nil
}

// Delete 删除指定链接
func (s *LinkService) Delete(userID string, id uint) error {
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&db.Link{}).Error; err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

func (s *LinkService) nextOrder(userID string) (int, error) {
	var maxOrder int
	if err := s.db.Model(&db.Link{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&maxOrder).Error; err != nil {
		return 0, fmt.Errorf("resolve link order: %w", err)
	}
	return maxOrder + 1, nil
}

func validateLinkInput(title, rawURL string) (string, string, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)
	if title == "" {
		return "", "", validationError("title is required")
	}
	if !validation.IsValidHTTPURL(rawURL) {
		return "", "", validationError("url is invalid")
	}
	return title, rawURL, nil
}
