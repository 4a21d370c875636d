package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	localKeyPrefix = "media/avatars"
	localUploadURL = "/api/dashboard/avatars/upload"
)

// LocalBackend 把头像写入本地目录，由 /media 静态路由对外提供
type LocalBackend struct {
	root string
}

// NewLocalBackend 创建本地存储，root 为对象 key 的根目录
func NewLocalBackend(root string) *LocalBackend {
	return &LocalBackend{root: root}
}

func (b *LocalBackend) Mode() string      { return ModeLocal }
func (b *LocalBackend) KeyPrefix() string { return localKeyPrefix }

// Root 返回存储根目录
func (b *LocalBackend) Root() string { return b.root }

// PrepareUpload 本地模式由服务端一步完成写入与登记，无需 finalize
func (b *LocalBackend) PrepareUpload(_ context.Context, objectKey, _ string) (UploadTarget, error) {
	return UploadTarget{
		URL:       localUploadURL + "?key=" + url.QueryEscape(objectKey),
		Method:    "POST",
		ObjectKey: objectKey,
	}, nil
}

func (b *LocalBackend) Save(_ context.Context, objectKey string, body io.Reader, _ int64, _ string) error {
	target, err := b.resolve(objectKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create avatar dir: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create avatar file: %w", err)
	}
	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(target)
		return fmt.Errorf("write avatar file: %w", err)
	}
	return file.Close()
}

// Delete 删除文件，文件不存在视为成功
func (b *LocalBackend) Delete(_ context.Context, objectKey string) error {
	target, err := b.resolve(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove avatar file: %w", err)
	}
	return nil
}

func (b *LocalBackend) PublicURL(objectKey string) string {
	return "/" + trimKey(objectKey)
}

// resolve 将对象 key 映射到根目录下的路径，拒绝越界
func (b *LocalBackend) resolve(objectKey string) (string, error) {
	root, err := filepath.Abs(b.root)
	if err != nil {
		return "", fmt.Errorf("resolve storage root: %w", err)
	}
	target := filepath.Join(root, filepath.FromSlash(trimKey(objectKey)))
	if target == root || !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, objectKey)
	}
	return target, nil
}
