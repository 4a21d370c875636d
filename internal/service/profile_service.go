package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/validation"
	"gorm.io/gorm"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// ProfileService 组装资料页的聚合读模型：基础信息、社交平台、外观与链接
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService 构造 ProfileService
func NewProfileService(gdb *gorm.DB) *ProfileService {
	return &ProfileService{db: gdb}
}

// ProfileInput 描述可编辑的基础资料，Bio 为空表示清除
type ProfileInput struct {
	DisplayName string
	Bio         *string
}

// ProfileDetails 为后台使用的完整资料，包含隐藏的社交平台与原始外观属性
type ProfileDetails struct {
	Profile db.Profile
	Socials []db.Social
	Design  map[string]*string
}

// DashboardData 为后台首页一次性加载的数据
type DashboardData struct {
	ProfileDetails
	Avatars []db.Avatar
	Links   []db.Link
}

// PublicSocial 为公开页中的社交图标，URL 已由用户名补全
type PublicSocial struct {
	Platform  string `json:"platform"`
	Value     string `json:"value"`
	Order     int    `json:"order"`
	IsVisible bool   `json:"isVisible"`
	URL       string `json:"url"`
}

// PublicLink 为公开页中的链接
type PublicLink struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	IsVisible bool   `json:"isVisible"`
	Order     int    `json:"order"`
}

// PublicProfile 为公开页读模型，只包含可见的链接和社交平台
type PublicProfile struct {
	DisplayName string             `json:"displayName"`
	Username    string             `json:"username"`
	Bio         *string            `json:"bio"`
	AvatarURL   *string            `json:"avatarUrl"`
	Socials     []PublicSocial     `json:"socials"`
	Design      map[string]*string `json:"design"`
	Theme       Theme              `json:"theme"`
	Links       []PublicLink       `json:"links"`
}

// Owner 返回唯一管理员的用户 ID，公开页据此加载资料
func (s *ProfileService) Owner() (string, error) {
	var user db.User
	if err := s.db.Order("created_at ASC").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", notFoundError("profile not found")
		}
		return "", fmt.Errorf("load owner: %w", err)
	}
	return user.ID, nil
}

// Get 返回资料、全部社交平台和外观属性
func (s *ProfileService) Get(userID string) (*ProfileDetails, error) {
	return loadProfileDetails(s.db, userID)
}

// Upsert 创建或更新基础资料，username 仅在首次创建时由显示名生成
func (s *ProfileService) Upsert(userID string, input ProfileInput) (*db.Profile, error) {
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, validationError("display name is required")
	}

	bio := normalizeBio(input.Bio)

	var profile db.Profile
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&profile).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			profile = db.Profile{
				UserID:      userID,
				DisplayName: displayName,
				Username:    slugify(displayName),
				Bio:         bio,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("load profile: %w", err)
		}

		if err := tx.Model(&profile).Updates(map[string]interface{}{
			"display_name": displayName,
			"bio":          bio,
			"updated_at":   time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		profile.DisplayName = displayName
		profile.Bio = bio
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// LoadPublic 组装公开页数据，隐藏的链接与社交平台不会出现
func (s *ProfileService) LoadPublic(userID string) (*PublicProfile, error) {
	details, err := loadProfileDetails(s.db, userID)
	if err != nil {
		return nil, err
	}

	var links []db.Link
	if err := s.db.Where("user_id = ? AND is_visible = ?", userID, true).
		Order("sort_order ASC, id ASC").
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load public links: %w", err)
	}

	result := &PublicProfile{
		DisplayName: details.Profile.DisplayName,
		Username:    details.Profile.Username,
		Bio:         details.Profile.Bio,
		AvatarURL:   details.Profile.AvatarURL,
		Socials:     make([]PublicSocial, 0, len(details.Socials)),
		Design:      details.Design,
		Theme:       ThemeFromAttributes(details.Design),
		Links:       make([]PublicLink, 0, len(links)),
	}

	for _, social := range details.Socials {
		if !social.IsVisible {
			continue
		}
		result.Socials = append(result.Socials, PublicSocial{
			Platform:  social.Platform,
			Value:     social.Value,
			Order:     social.Order,
			IsVisible: social.IsVisible,
			URL:       validation.BuildSocialURL(social.Platform, social.Value),
		})
	}
	for _, link := range links {
		result.Links = append(result.Links, PublicLink{
			ID:        link.ID,
			Title:     link.Title,
			URL:       link.URL,
			IsVisible: link.IsVisible,
			Order:     link.Order,
		})
	}

	return result, nil
}

// Dashboard 返回后台首页所需的全部数据，链接包含隐藏项
func (s *ProfileService) Dashboard(userID string) (*DashboardData, error) {
	details, err := loadProfileDetails(s.db, userID)
	if err != nil {
		return nil, err
	}

	data := &DashboardData{ProfileDetails: *details}
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&data.Avatars).Error; err != nil {
		return nil, fmt.Errorf("load avatars: %w", err)
	}
	if err := s.db.Where("user_id = ?", userID).Order("sort_order ASC, id ASC").Find(&data.Links).Error; err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	return data, nil
}

func loadProfileDetails(tx *gorm.DB, userID string) (*ProfileDetails, error) {
	var profile db.Profile
	if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("profile not found")
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var socials []db.Social
	if err := tx.Where("user_id = ?", userID).Order("sort_order ASC, id ASC").Find(&socials).Error; err != nil {
		return nil, fmt.Errorf("load socials: %w", err)
	}

	design, err := loadDesign(tx, userID)
	if err != nil {
		return nil, err
	}

	return &ProfileDetails{Profile: profile, Socials: socials, Design: design}, nil
}

func normalizeBio(bio *string) *string {
	if bio == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*bio)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// slugify 由显示名生成 username：小写并将空白替换为 -
func slugify(name string) string {
	return whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
