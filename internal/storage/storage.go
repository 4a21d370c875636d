package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/linkbio/internal/config"
)

const (
	ModeLocal = "local"
	ModeS3    = "s3"
)

// ErrOutsideRoot 表示对象 key 解析后越出了本地存储根目录
var ErrOutsideRoot = errors.New("object key escapes storage root")

// UploadTarget 描述客户端上传头像的目标地址
type UploadTarget struct {
	URL              string `json:"uploadUrl"`
	Method           string `json:"uploadMethod"`
	ObjectKey        string `json:"objectKey"`
	RequiresFinalize bool   `json:"requiresFinalize"`
	PublicURL        string `json:"publicUrl,omitempty"`
}

// Backend 为头像存储的能力接口，启动时按配置选定一种实现
type Backend interface {
	Mode() string
	// KeyPrefix 为对象 key 的公共前缀，不含结尾的 /
	KeyPrefix() string
	// PrepareUpload 返回上传目标；RequiresFinalize 为 true 时客户端上传后需调用 finalize 登记
	PrepareUpload(ctx context.Context, objectKey, contentType string) (UploadTarget, error)
	Save(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectKey string) error
	PublicURL(objectKey string) string
}

// New 根据配置创建存储后端
func New(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal, "":
		return NewLocalBackend(cfg.LocalRoot), nil
	case config.StorageDriverS3:
		return NewS3Backend(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func trimKey(objectKey string) string {
	return strings.TrimLeft(objectKey, "/")
}
