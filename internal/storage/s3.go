package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/linkbio/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	s3KeyPrefix = "avatars"
	// PresignExpiry 为预签名上传地址的有效期
	PresignExpiry = 5 * time.Minute
)

// ObjectClient 为 S3Backend 依赖的 minio 方法子集，便于测试替换
type ObjectClient interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var _ ObjectClient = (*minio.Client)(nil)

// S3Backend 通过预签名 PUT 让浏览器直传兼容 S3 的对象存储
type S3Backend struct {
	endpoint       string
	bucket         string
	forcePathStyle bool
	client         ObjectClient
}

// NewS3Backend 使用静态凭证创建 minio 客户端
func NewS3Backend(cfg config.S3Config) (*S3Backend, error) {
	host, secure := splitEndpoint(cfg.Endpoint)
	lookup := minio.BucketLookupDNS
	if cfg.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return NewS3BackendWithClient(cfg, client), nil
}

// NewS3BackendWithClient 使用已有客户端构造后端
func NewS3BackendWithClient(cfg config.S3Config, client ObjectClient) *S3Backend {
	return &S3Backend{
		endpoint:       strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		bucket:         cfg.Bucket,
		forcePathStyle: cfg.ForcePathStyle,
		client:         client,
	}
}

func (b *S3Backend) Mode() string      { return ModeS3 }
func (b *S3Backend) KeyPrefix() string { return s3KeyPrefix }

func (b *S3Backend) PrepareUpload(ctx context.Context, objectKey, _ string) (UploadTarget, error) {
	signed, err := b.client.PresignedPutObject(ctx, b.bucket, objectKey, PresignExpiry)
	if err != nil {
		return UploadTarget{}, fmt.Errorf("presign avatar upload: %w", err)
	}
	return UploadTarget{
		URL:              signed.String(),
		Method:           "PUT",
		ObjectKey:        objectKey,
		RequiresFinalize: true,
		PublicURL:        b.PublicURL(objectKey),
	}, nil
}

func (b *S3Backend) Save(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error {
	if _, err := b.client.PutObject(ctx, b.bucket, objectKey, body, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("put avatar object: %w", err)
	}
	return nil
}

func (b *S3Backend) Delete(ctx context.Context, objectKey string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove avatar object: %w", err)
	}
	return nil
}

// PublicURL 按 path-style 或 virtual-hosted 规则拼接对象地址
func (b *S3Backend) PublicURL(objectKey string) string {
	key := trimKey(objectKey)
	if b.forcePathStyle {
		return fmt.Sprintf("%s/%s/%s", b.endpoint, b.bucket, key)
	}

	parsed, err := url.Parse(b.endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Sprintf("https://%s.%s/%s", b.bucket, b.endpoint, key)
	}
	return fmt.Sprintf("%s://%s.%s/%s", parsed.Scheme, b.bucket, parsed.Host, key)
}

// splitEndpoint 把配置的 endpoint 拆成 minio 需要的 host 与 TLS 开关
func splitEndpoint(endpoint string) (string, bool) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return endpoint, true
	}
	return parsed.Host, parsed.Scheme == "https"
}
