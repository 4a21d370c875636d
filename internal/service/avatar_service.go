package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/imaging"
	"github.com/linkbio/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxAvatarSize 为单张头像的大小上限
const MaxAvatarSize = 10 * 1024 * 1024

var allowedAvatarTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// AvatarExtension 返回允许的图片类型对应的扩展名
func AvatarExtension(contentType string) (string, bool) {
	ext, ok := allowedAvatarTypes[contentType]
	return ext, ok
}

// AvatarService 管理头像库以及资料中的当前头像
type AvatarService struct {
	db      *gorm.DB
	backend storage.Backend
	logger  *zap.Logger
}

// NewAvatarService 构造 AvatarService，logger 为空时不输出日志
func NewAvatarService(gdb *gorm.DB, backend storage.Backend, logger *zap.Logger) *AvatarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvatarService{db: gdb, backend: backend, logger: logger}
}

// UploadInput 为服务端一步上传的参数，Crop 为空表示原图保存
type UploadInput struct {
	ObjectKey   string
	ContentType string
	Size        int64
	Body        io.Reader
	Crop        *CropInput
}

// CropInput 为裁剪区域与缩放倍数
type CropInput struct {
	Area imaging.Area
	Zoom float64
}

// Mode 返回当前存储模式
func (s *AvatarService) Mode() string {
	return s.backend.Mode()
}

// List 返回用户全部头像，最新的在前
func (s *AvatarService) List(userID string) ([]db.Avatar, error) {
	var avatars []db.Avatar
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&avatars).Error; err != nil {
		return nil, fmt.Errorf("list avatars: %w", err)
	}
	return avatars, nil
}

// AuthorizeUpload 校验类型与大小并生成对象 key 和上传目标
func (s *AvatarService) AuthorizeUpload(ctx context.Context, userID, contentType string, size int64) (*storage.UploadTarget, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	ext, err := checkAvatarFile(contentType, size)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("%s/%s/%s.%s", s.backend.KeyPrefix(), userID, uuid.NewString(), ext)
	target, err := s.backend.PrepareUpload(ctx, objectKey, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &target, nil
}

// Finalize 登记客户端已直传到对象存储的头像，并设为当前头像
func (s *AvatarService) Finalize(ctx context.Context, userID, objectKey string) (*db.Avatar, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if s.backend.Mode() == storage.ModeLocal {
		return nil, validationError("finalize is not required for local storage")
	}
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil, validationError("avatar key is missing")
	}
	if err := s.ensureNamespace(userID, objectKey); err != nil {
		return nil, err
	}
	return s.record(userID, objectKey)
}

// StoreUpload 由服务端写入头像文件，可选先裁剪。裁剪后的大小会再次校验
func (s *AvatarService) StoreUpload(ctx context.Context, userID string, input UploadInput) (*db.Avatar, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if err := s.ensureNamespace(userID, input.ObjectKey); err != nil {
		return nil, err
	}
	if _, err := checkAvatarFile(input.ContentType, input.Size); err != nil {
		return nil, err
	}
	if input.Body == nil {
		return nil, validationError("missing file")
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, MaxAvatarSize+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > MaxAvatarSize {
		return nil, validationError("Avatar must be 10MB or less")
	}

	objectKey := input.ObjectKey
	contentType := input.ContentType
	if input.Crop != nil {
		cropped, err := imaging.Crop(bytes.NewReader(data), input.ContentType, input.Crop.Area, input.Crop.Zoom)
		if err != nil {
			if errors.Is(err, imaging.ErrInvalidCrop) || errors.Is(err, imaging.ErrUnsupportedType) {
				return nil, validationError("%v", err)
			}
			return nil, validationError("image could not be processed")
		}
		data = cropped.Data
		contentType = cropped.ContentType
		objectKey = replaceExtension(objectKey, cropped.Extension)
		if len(data) > MaxAvatarSize {
			return nil, validationError("Avatar must be 10MB or less")
		}
	}

	if err := s.backend.Save(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	avatar, err := s.record(userID, objectKey)
	if err != nil {
		if delErr := s.backend.Delete(ctx, objectKey); delErr != nil {
			s.logger.Warn("remove orphaned avatar object failed", zap.String("key", objectKey), zap.Error(delErr))
		}
		return nil, err
	}
	return avatar, nil
}

// SetActive 把头像库中的一张设为当前头像
func (s *AvatarService) SetActive(userID string, avatarID uint) (*db.Avatar, error) {
	avatar, err := s.find(userID, avatarID)
	if err != nil {
		return nil, err
	}
	if err := setProfileAvatar(s.db, userID, &avatar.URL); err != nil {
		return nil, err
	}
	return avatar, nil
}

// ClearActive 移除当前头像，需要调用方显式确认
func (s *AvatarService) ClearActive(userID string, confirmed bool) error {
	if !confirmed {
		return validationError("Avatar removal not confirmed")
	}
	return setProfileAvatar(s.db, userID, nil)
}

// Delete 删除存储对象与记录；若正在使用该头像则一并清空
func (s *AvatarService) Delete(ctx context.Context, userID string, avatarID uint) error {
	avatar, err := s.find(userID, avatarID)
	if err != nil {
		return err
	}
	if err := s.ensureNamespace(userID, avatar.ObjectKey); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, avatar.ObjectKey); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", avatar.ID, userID).Delete(&db.Avatar{}).Error; err != nil {
			return fmt.Errorf("delete avatar: %w", err)
		}
		if err := tx.Model(&db.Profile{}).
			Where("user_id = ? AND avatar_url = ?", userID, avatar.URL).
			Updates(map[string]interface{}{"avatar_url": nil, "updated_at": time.Now()}).Error; err != nil {
			return fmt.Errorf("clear profile avatar: %w", err)
		}
		return nil
	})
}

// Purge 尽力删除用户在存储中的全部头像对象，失败只记录日志
func (s *AvatarService) Purge(ctx context.Context, userID string) {
	avatars, err := s.List(userID)
	if err != nil {
		s.logger.Warn("list avatars for purge failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	for _, avatar := range avatars {
		if err := s.ensureNamespace(userID, avatar.ObjectKey); err != nil {
			s.logger.Warn("skip avatar outside namespace", zap.String("key", avatar.ObjectKey))
			continue
		}
		if err := s.backend.Delete(ctx, avatar.ObjectKey); err != nil {
			s.logger.Warn("purge avatar object failed", zap.String("key", avatar.ObjectKey), zap.Error(err))
		}
	}
}

func (s *AvatarService) record(userID, objectKey string) (*db.Avatar, error) {
	avatar := db.Avatar{UserID: userID, ObjectKey: objectKey, URL: s.backend.PublicURL(objectKey)}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&avatar).Error; err != nil {
			return fmt.Errorf("create avatar: %w", err)
		}
		return setProfileAvatar(tx, userID, &avatar.URL)
	})
	if err != nil {
		return nil, err
	}
	return &avatar, nil
}

func (s *AvatarService) find(userID string, avatarID uint) (*db.Avatar, error) {
	var avatar db.Avatar
	if err := s.db.Where("id = ? AND user_id = ?", avatarID, userID).First(&avatar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Avatar not found")
		}
		return nil, fmt.Errorf("load avatar: %w", err)
	}
	return &avatar, nil
}

// ensureNamespace 要求 key 位于 {prefix}/{userID}/ 之下且不含 .. 段
func (s *AvatarService) ensureNamespace(userID, objectKey string) error {
	namespace := s.backend.KeyPrefix() + "/" + userID + "/"
	if userID == "" || !strings.HasPrefix(objectKey, namespace) || len(objectKey) == len(namespace) {
		return fmt.Errorf("%w: Invalid avatar key", ErrSecurity)
	}
	if strings.Contains(objectKey, "\\") {
		return fmt.Errorf("%w: Invalid avatar key", ErrSecurity)
	}
	for _, segment := range strings.Split(objectKey, "/") {
		if segment == ".." || segment == "." || segment == "" {
			return fmt.Errorf("%w: Invalid avatar key", ErrSecurity)
		}
	}
	return nil
}

func setProfileAvatar(tx *gorm.DB, userID string, url *string) error {
	if err := tx.Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"avatar_url": url, "updated_at": time.Now()}).Error; err != nil {
		return fmt.Errorf("update profile avatar: %w", err)
	}
	return nil
}

func checkAvatarFile(contentType string, size int64) (string, error) {
	ext, ok := AvatarExtension(contentType)
	if !ok {
		return "", validationError("Only image uploads are allowed")
	}
	if size <= 0 || size > MaxAvatarSize {
		return "", validationError("Avatar must be 10MB or less")
	}
	return ext, nil
}

func replaceExtension(objectKey, ext string) string {
	current := path.Ext(objectKey)
	if strings.TrimPrefix(current, ".") == ext {
		return objectKey
	}
	return strings.TrimSuffix(objectKey, current) + "." + ext
}
