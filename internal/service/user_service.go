package service

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/linkbio/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// MinPasswordLength 为管理员密码最短长度
	MinPasswordLength = 8
	initialBio        = "Welcome to my LinkBio!"
)

// UserService 管理唯一的管理员账号
type UserService struct {
	db *gorm.DB
}

func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// HasAdmin 判断是否已完成初始化
func (s *UserService) HasAdmin() (bool, error) {
	var count int64
	if err := s.db.Model(&db.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// CreateAdmin 创建管理员及其初始资料，已存在任意账号时返回 ErrAdminExists
func (s *UserService) CreateAdmin(name, email, password string) (*db.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, validationError("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationError("email is invalid")
	}
	if len(password) < MinPasswordLength {
		return nil, validationError("password must be at least %d characters", MinPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{Name: name, Email: email, Password: string(hashed)}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.User{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if count > 0 {
			return ErrAdminExists
		}

		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		bio := initialBio
		profile := db.Profile{
			UserID:      user.ID,
			DisplayName: name,
			Username:    slugify(name),
			Bio:         &bio,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate 校验邮箱与密码，失败时统一返回 ErrUnauthorized
func (s *UserService) Authenticate(email, password string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	return &user, nil
}

// DeleteAccount 依次清理外观、社交平台、链接、头像记录、资料与账号。
// 存储中的头像文件由 AvatarService.Purge 负责。
func (s *UserService) DeleteAccount(userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := clearDesign(tx, userID); err != nil {
			return err
		}
		if err := clearSocials(tx, userID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&db.Link{}).Error; err != nil {
			return fmt.Errorf("delete links: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&db.Avatar{}).Error; err != nil {
			return fmt.Errorf("delete avatars: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&db.Profile{}).Error; err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		if err := tx.Where("id = ?", userID).Delete(&db.User{}).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}
